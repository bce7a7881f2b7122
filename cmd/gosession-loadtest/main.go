// Command gosession-loadtest drives many device session stores against one Redis
// to measure restore and write-through latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fisioonhand/goSession/session"
	"github.com/redis/go-redis/v9"
)

type device struct {
	store      *session.Store
	identity   session.Identity
	generation int
	mu         sync.Mutex
}

func main() {
	var (
		devices     = flag.Int("devices", 10000, "number of device sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (restore + save)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		ttl         = flag.Duration("ttl", 24*time.Hour, "expiry applied to stored keys")
	)
	flag.Parse()

	if *devices <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "devices, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	backend := session.NewRedisBackend(client, *ttl)

	fleet := make([]*device, *devices)
	fmt.Printf("seeding %d devices...\n", *devices)
	startSeed := time.Now()
	for i := range fleet {
		d := &device{
			store: session.NewStore(backend, fmt.Sprintf("device-%d:@Auth:", i)),
			identity: session.Identity{
				ID:        fmt.Sprintf("u-%d", i),
				Username:  fmt.Sprintf("fisio%d", i),
				Email:     fmt.Sprintf("fisio%d@fisioonhand.dev", i),
				CrefitoID: fmt.Sprintf("%06d-F", i),
			},
		}
		if err := d.store.Save(ctx, credentialFor(i, 0), d.identity); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		fleet[i] = d
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	restoreStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		d := fleet[r.Intn(len(fleet))]
		s, err := d.store.Load(ctx)
		if err != nil {
			return err
		}
		if !s.IsAuthenticated() {
			return fmt.Errorf("device %s restored unauthenticated", d.identity.ID)
		}
		return nil
	})
	saveStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		idx := r.Intn(len(fleet))
		d := fleet[idx]
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.store.Save(ctx, credentialFor(idx, d.generation+1), d.identity); err != nil {
			return err
		}
		d.generation++
		return nil
	})

	fmt.Println("---- results ----")
	printStats("restore", restoreStats)
	printStats("save", saveStats)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// credentialFor builds an opaque, non-JWT credential; the store does not inspect it.
func credentialFor(i, generation int) string {
	return fmt.Sprintf("tok-%d-%d", i, generation)
}
