package clinic

import (
	"strings"
	"time"
)

// Patient is a patient registered by the practitioner.
type Patient struct {
	ID        int64     `json:"id,omitempty"`
	FullName  string    `json:"nome_completo"`
	BirthDate string    `json:"data_nascimento,omitempty"`
	CPF       string    `json:"cpf,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"telefone_principal,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Validate checks the fields the API requires.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return invalid("nome_completo is required")
	}
	return nil
}

// Record is a patient's physiotherapy assessment (ficha).
type Record struct {
	ID             int64     `json:"id,omitempty"`
	PatientID      int64     `json:"paciente_id"`
	AssessedAt     time.Time `json:"data_avaliacao"`
	ChiefComplaint string    `json:"queixa_principal"`
	Diagnosis      string    `json:"diagnostico_fisioterapeutico"`
	TreatmentPlan  string    `json:"plano_tratamento"`
	Observations   string    `json:"observacoes_adicionais,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// Validate checks the fields the API requires.
func (r Record) Validate() error {
	switch {
	case r.PatientID <= 0:
		return invalid("paciente_id is required")
	case strings.TrimSpace(r.ChiefComplaint) == "":
		return invalid("queixa_principal is required")
	case strings.TrimSpace(r.Diagnosis) == "":
		return invalid("diagnostico_fisioterapeutico is required")
	case strings.TrimSpace(r.TreatmentPlan) == "":
		return invalid("plano_tratamento is required")
	}
	return nil
}

// NoteKind is the annotation type id used by the API.
type NoteKind int

const (
	NoteText NoteKind = iota + 1
	NotePDF
	NoteImage
	NoteAttachment
)

func (k NoteKind) String() string {
	switch k {
	case NoteText:
		return "text"
	case NotePDF:
		return "pdf"
	case NoteImage:
		return "image"
	case NoteAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// Note is an annotation attached to a record.
type Note struct {
	ID        int64     `json:"id,omitempty"`
	RecordID  int64     `json:"ficha_paciente_id"`
	Kind      NoteKind  `json:"tipo_anotacao_id"`
	Content   string    `json:"conteudo_anotacao"`
	Summary   string    `json:"descricao_curta,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Validate checks the fields the API requires.
func (n Note) Validate() error {
	switch {
	case n.RecordID <= 0:
		return invalid("ficha_paciente_id is required")
	case n.Kind < NoteText || n.Kind > NoteAttachment:
		return invalid("tipo_anotacao_id must be 1..4")
	case strings.TrimSpace(n.Content) == "":
		return invalid("conteudo_anotacao is required")
	}
	return nil
}
