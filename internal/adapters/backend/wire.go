package backend

import (
	"encoding/json"
	"fmt"

	"setoran-pa/internal/core/domain"
)

// envelope is the shape every backend reply shares
type envelope struct {
	Response *bool           `json:"response"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

type lecturerWire struct {
	NIP   string `json:"nip"`
	Nama  string `json:"nama"`
	Email string `json:"email"`
}

func (l lecturerWire) toDomain() domain.Lecturer {
	return domain.Lecturer{NIP: l.NIP, Name: l.Nama, Email: l.Email}
}

type progressWire struct {
	TotalWajibSetor        int     `json:"total_wajib_setor"`
	TotalSudahSetor        int     `json:"total_sudah_setor"`
	TotalBelumSetor        int     `json:"total_belum_setor"`
	PersentaseProgresSetor float64 `json:"persentase_progres_setor"`
	TglTerakhirSetor       *string `json:"tgl_terakhir_setor"`
	TerakhirSetor          string  `json:"terakhir_setor"`
}

func (p progressWire) toDomain() domain.DepositProgress {
	return domain.DepositProgress{
		Required:        p.TotalWajibSetor,
		Done:            p.TotalSudahSetor,
		Remaining:       p.TotalBelumSetor,
		Percent:         p.PersentaseProgresSetor,
		LastDepositDate: p.TglTerakhirSetor,
		LastDeposit:     p.TerakhirSetor,
	}
}

// ---- roster ----

type rosterWire struct {
	lecturerWire
	InfoMahasiswaPA *struct {
		Ringkasan []struct {
			Tahun string `json:"tahun"`
			Total int    `json:"total"`
		} `json:"ringkasan"`
		DaftarMahasiswa []studentWire `json:"daftar_mahasiswa"`
	} `json:"info_mahasiswa_pa"`
}

type studentWire struct {
	Email       string        `json:"email"`
	NIM         string        `json:"nim"`
	Nama        string        `json:"nama"`
	Angkatan    string        `json:"angkatan"`
	Semester    int           `json:"semester"`
	InfoSetoran *progressWire `json:"info_setoran"`
}

func (w rosterWire) toDomain() (domain.Roster, error) {
	if w.InfoMahasiswaPA == nil {
		return domain.Roster{}, fmt.Errorf("roster has no info_mahasiswa_pa")
	}
	roster := domain.Roster{
		Advisor:  w.lecturerWire.toDomain(),
		Summary:  make([]domain.CohortSummary, 0, len(w.InfoMahasiswaPA.Ringkasan)),
		Students: make([]domain.StudentRecord, 0, len(w.InfoMahasiswaPA.DaftarMahasiswa)),
	}
	for _, r := range w.InfoMahasiswaPA.Ringkasan {
		roster.Summary = append(roster.Summary, domain.CohortSummary{Year: r.Tahun, Total: r.Total})
	}
	for i, s := range w.InfoMahasiswaPA.DaftarMahasiswa {
		if s.NIM == "" {
			return domain.Roster{}, fmt.Errorf("student %d has no nim", i)
		}
		var progress domain.DepositProgress
		if s.InfoSetoran != nil {
			progress = s.InfoSetoran.toDomain()
		}
		roster.Students = append(roster.Students, domain.StudentRecord{
			NIM:           s.NIM,
			Name:          s.Nama,
			Email:         s.Email,
			CohortYear:    s.Angkatan,
			Semester:      s.Semester,
			SupervisorRef: roster.Advisor.NIP,
			Progress:      progress,
		})
	}
	return roster, nil
}

// ---- detail ----

type detailWire struct {
	Info *struct {
		Nama     string       `json:"nama"`
		NIM      string       `json:"nim"`
		Email    string       `json:"email"`
		Angkatan string       `json:"angkatan"`
		Semester int          `json:"semester"`
		DosenPA  lecturerWire `json:"dosen_pa"`
	} `json:"info"`
	Setoran *struct {
		Log       []json.RawMessage `json:"log"`
		InfoDasar progressWire      `json:"info_dasar"`
		Ringkasan []struct {
			Label                  string  `json:"label"`
			TotalWajibSetor        int     `json:"total_wajib_setor"`
			TotalSudahSetor        int     `json:"total_sudah_setor"`
			TotalBelumSetor        int     `json:"total_belum_setor"`
			PersentaseProgresSetor float64 `json:"persentase_progres_setor"`
		} `json:"ringkasan"`
		Detail []componentWire `json:"detail"`
	} `json:"setoran"`
}

type componentWire struct {
	ID                string `json:"id"`
	IDKomponenSetoran string `json:"id_komponen_setoran"`
	Nama              string `json:"nama"`
	NamaArab          string `json:"nama_arab"`
	Label             string `json:"label"`
	SudahSetor        bool   `json:"sudah_setor"`
	InfoSetoran       *struct {
		ID                   string       `json:"id"`
		TglSetoran           string       `json:"tgl_setoran"`
		TglValidasi          string       `json:"tgl_validasi"`
		DosenYangMengesahkan lecturerWire `json:"dosen_yang_mengesahkan"`
	} `json:"info_setoran"`
}

// toDomain enforces the validated/info_setoran pairing so a half-populated
// component never reaches the services.
func (c componentWire) toDomain() (domain.DepositComponent, error) {
	if c.IDKomponenSetoran == "" {
		return domain.DepositComponent{}, fmt.Errorf("component %q has no id_komponen_setoran", c.Nama)
	}
	component := domain.DepositComponent{
		ID:          c.ID,
		ComponentID: c.IDKomponenSetoran,
		Name:        c.Nama,
		ArabicName:  c.NamaArab,
		Category:    c.Label,
		Validated:   c.SudahSetor,
	}
	switch {
	case c.SudahSetor && c.InfoSetoran == nil:
		return domain.DepositComponent{}, fmt.Errorf("component %s is validated without info_setoran", c.IDKomponenSetoran)
	case !c.SudahSetor && c.InfoSetoran != nil:
		return domain.DepositComponent{}, fmt.Errorf("component %s has info_setoran but is not validated", c.IDKomponenSetoran)
	case c.SudahSetor:
		if c.InfoSetoran.ID == "" {
			return domain.DepositComponent{}, fmt.Errorf("component %s has an empty deposit id", c.IDKomponenSetoran)
		}
		depositID := c.InfoSetoran.ID
		component.ParentDepositID = &depositID
		component.Validation = &domain.ValidationInfo{
			DepositID:   depositID,
			DepositedAt: c.InfoSetoran.TglSetoran,
			ValidatedAt: c.InfoSetoran.TglValidasi,
			Validator:   c.InfoSetoran.DosenYangMengesahkan.toDomain(),
		}
	}
	return component, nil
}

func (w detailWire) toDomain() (domain.StudentDetail, error) {
	if w.Info == nil || w.Setoran == nil {
		return domain.StudentDetail{}, fmt.Errorf("detail is missing info or setoran")
	}
	detail := domain.StudentDetail{
		Info: domain.StudentInfo{
			NIM:        w.Info.NIM,
			Name:       w.Info.Nama,
			Email:      w.Info.Email,
			CohortYear: w.Info.Angkatan,
			Semester:   w.Info.Semester,
			Advisor:    w.Info.DosenPA.toDomain(),
		},
		Progress:   w.Setoran.InfoDasar.toDomain(),
		Summary:    make([]domain.CategorySummary, 0, len(w.Setoran.Ringkasan)),
		Components: make([]domain.DepositComponent, 0, len(w.Setoran.Detail)),
		Log:        w.Setoran.Log,
	}
	if detail.Log == nil {
		detail.Log = []json.RawMessage{}
	}
	for _, r := range w.Setoran.Ringkasan {
		detail.Summary = append(detail.Summary, domain.CategorySummary{
			Label:     r.Label,
			Required:  r.TotalWajibSetor,
			Done:      r.TotalSudahSetor,
			Remaining: r.TotalBelumSetor,
			Percent:   r.PersentaseProgresSetor,
		})
	}
	seen := make(map[string]struct{}, len(w.Setoran.Detail))
	for _, c := range w.Setoran.Detail {
		component, err := c.toDomain()
		if err != nil {
			return domain.StudentDetail{}, err
		}
		if _, dup := seen[component.ComponentID]; dup {
			return domain.StudentDetail{}, fmt.Errorf("component %s listed twice", component.ComponentID)
		}
		seen[component.ComponentID] = struct{}{}
		detail.Components = append(detail.Components, component)
	}
	return detail, nil
}

// ---- mutations ----

type depositItemWire struct {
	ID                  string `json:"id,omitempty"`
	IDSetoran           string `json:"id_setoran,omitempty"`
	IDKomponenSetoran   string `json:"id_komponen_setoran"`
	NamaKomponenSetoran string `json:"nama_komponen_setoran"`
}

type depositRequest struct {
	DataSetoran []depositItemWire `json:"data_setoran"`
}

func submitRequest(items []domain.SubmitItem) depositRequest {
	req := depositRequest{DataSetoran: make([]depositItemWire, 0, len(items))}
	for _, item := range items {
		req.DataSetoran = append(req.DataSetoran, depositItemWire{
			IDKomponenSetoran:   item.ComponentID,
			NamaKomponenSetoran: item.Name,
		})
	}
	return req
}

// cancelRequest names the deposit under both id and id_setoran; backend
// revisions disagree on which one they read.
func cancelRequest(item domain.CancelItem) depositRequest {
	return depositRequest{DataSetoran: []depositItemWire{{
		ID:                  item.DepositID,
		IDSetoran:           item.DepositID,
		IDKomponenSetoran:   item.ComponentID,
		NamaKomponenSetoran: item.Name,
	}}}
}
