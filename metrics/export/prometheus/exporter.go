package prometheus

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	goSession "github.com/fisioonhand/goSession"
	"github.com/fisioonhand/goSession/metrics/export/internaldefs"
)

// Source is what the exporter reads; *goSession.Manager satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	Status() goSession.Status
}

// PrometheusExporter renders session metrics in the Prometheus text format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter reads from a session manager.
func NewPrometheusExporter(manager *goSession.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: manager}
}

// NewPrometheusExporterFromSource reads from any [Source].
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = p.Write(w)
	})
}

// Render returns the current exposition as a string.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	_ = p.Write(&b)
	return b.String()
}

// Write renders the session status gauge and, when metrics are enabled, every
// counter and the store write latency histogram.
func (p *PrometheusExporter) Write(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}

	bw := bufio.NewWriter(w)

	current := p.source.Status()
	header(bw, internaldefs.SessionStatusName, internaldefs.SessionStatusHelp, "gauge")
	for _, status := range internaldefs.Statuses {
		value := 0
		if status == current {
			value = 1
		}
		fmt.Fprintf(bw, "%s{status=%q} %d\n", internaldefs.SessionStatusName, status.String(), value)
	}

	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for _, def := range internaldefs.CounterDefs {
			counter(bw, def.Name, def.Help, snapshot.Counters[def.ID])
		}
	}

	if raw, ok := snapshot.Histograms[internaldefs.StoreWriteLatency.ID]; ok {
		def := internaldefs.StoreWriteLatency
		buckets := internaldefs.CumulativeBuckets(raw)
		header(bw, def.Name, def.Help, "histogram")
		for _, b := range buckets {
			fmt.Fprintf(bw, "%s_bucket{le=%q} %d\n", def.Name, b.UpperBound, b.Count)
		}
		sum := snapshot.HistogramSums[def.ID].Seconds()
		fmt.Fprintf(bw, "%s_sum %s\n", def.Name, strconv.FormatFloat(sum, 'g', -1, 64))
		fmt.Fprintf(bw, "%s_count %d\n", def.Name, buckets[len(buckets)-1].Count)
	}

	counter(bw, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, p.source.AuditDropped())

	return bw.Flush()
}

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func counter(w io.Writer, name, help string, value uint64) {
	header(w, name, help, "counter")
	fmt.Fprintf(w, "%s %d\n", name, value)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
