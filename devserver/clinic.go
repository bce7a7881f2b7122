package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fisioonhand/goSession/clinic"
)

// clinicData holds patient data partitioned by practitioner id.
type clinicData struct {
	mu       sync.Mutex
	nextID   int64
	patients map[int64]ownedPatient
	records  map[int64]ownedRecord
	notes    map[int64]ownedNote
}

type ownedPatient struct {
	owner string
	clinic.Patient
}

type ownedRecord struct {
	owner string
	clinic.Record
}

type ownedNote struct {
	owner string
	clinic.Note
}

func newClinicData() *clinicData {
	return &clinicData{
		patients: map[int64]ownedPatient{},
		records:  map[int64]ownedRecord{},
		notes:    map[int64]ownedNote{},
	}
}

func (d *clinicData) id() int64 {
	d.nextID++
	return d.nextID
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := s.currentPractitioner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown practitioner")
		return "", false
	}
	return id.ID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeValidation(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, clinic.ErrInvalid) {
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, err.Error())
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	d := s.clinic
	d.mu.Lock()
	out := make([]clinic.Patient, 0, len(d.patients))
	for _, p := range d.patients {
		if p.owner == owner {
			out = append(out, p.Patient)
		}
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d := s.clinic
	d.mu.Lock()
	p, found := d.patients[id]
	d.mu.Unlock()
	if !found || p.owner != owner {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	writeJSON(w, http.StatusOK, p.Patient)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var p clinic.Patient
	if !decodeBody(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	d := s.clinic
	d.mu.Lock()
	for _, existing := range d.patients {
		if p.CPF != "" && existing.owner == owner && existing.CPF == p.CPF {
			d.mu.Unlock()
			writeError(w, http.StatusConflict, "cpf already registered")
			return
		}
	}
	p.ID = d.id()
	p.CreatedAt = time.Now().UTC()
	d.patients[p.ID] = ownedPatient{owner: owner, Patient: p}
	d.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleFindRecords(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	patientID, ok := queryID(w, r, "paciente_id")
	if !ok {
		return
	}
	d := s.clinic
	d.mu.Lock()
	out := []clinic.Record{}
	for _, rec := range d.records {
		if rec.owner == owner && rec.PatientID == patientID {
			out = append(out, rec.Record)
		}
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// handleSaveRecord serves both creation (POST) and update (PUT /{id}).
func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var rec clinic.Record
	if !decodeBody(w, r, &rec) {
		return
	}
	if r.Method == http.MethodPut {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rec.ID = id
	} else {
		rec.ID = 0
	}
	if err := rec.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	d := s.clinic
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, found := d.patients[rec.PatientID]; !found || p.owner != owner {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	status := http.StatusOK
	if rec.ID == 0 {
		rec.ID = d.id()
		status = http.StatusCreated
	} else if existing, found := d.records[rec.ID]; !found || existing.owner != owner {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	rec.UpdatedAt = time.Now().UTC()
	d.records[rec.ID] = ownedRecord{owner: owner, Record: rec}
	writeJSON(w, status, rec)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	recordID, ok := queryID(w, r, "ficha_paciente_id")
	if !ok {
		return
	}
	d := s.clinic
	d.mu.Lock()
	out := []clinic.Note{}
	for _, n := range d.notes {
		if n.owner == owner && n.RecordID == recordID {
			out = append(out, n.Note)
		}
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var n clinic.Note
	if !decodeBody(w, r, &n) {
		return
	}
	if err := n.Validate(); err != nil {
		writeValidation(w, err)
		return
	}

	d := s.clinic
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, found := d.records[n.RecordID]; !found || rec.owner != owner {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	n.ID = d.id()
	n.CreatedAt = time.Now().UTC()
	d.notes[n.ID] = ownedNote{owner: owner, Note: n}
	writeJSON(w, http.StatusCreated, n)
}
