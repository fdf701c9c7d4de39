package filestore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/mmynk/societyhub/internal/models"
)

// AgreementParties carries the display names printed on an agreement.
type AgreementParties struct {
	SocietyName string
	FlatNo      string
	OwnerName   string
	TenantName  string
}

// Renderer turns an agreement into a stored document and returns its URL.
type Renderer interface {
	RenderAgreement(ctx context.Context, a *models.Agreement, parties AgreementParties) (string, error)
}

var agreementTemplate = template.Must(template.New("agreement").Funcs(template.FuncMap{
	"date":  formatDate,
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":  strings.Join,
}).Parse(`RENTAL AGREEMENT

Society: {{.Parties.SocietyName}}
Flat:    {{.Parties.FlatNo}}

Owner:   {{.Parties.OwnerName}}
Tenant:  {{.Parties.TenantName}}

Term:    {{date .A.StartDate}} to {{date .A.EndDate}}
Rent:    {{money .A.Rent}}
Deposit: {{money .A.Deposit}}
{{- if .A.Witnesses}}

Witnesses: {{join .A.Witnesses ", "}}
{{- end}}

Agreement ID: {{.A.ID}}
`))

// TextRenderer renders a plain-text agreement into a Store.
type TextRenderer struct {
	store Store
}

func NewTextRenderer(store Store) *TextRenderer {
	return &TextRenderer{store: store}
}

// RenderAgreement writes agreements/<flat>/<agreement>.txt. The agreement
// must already carry its ID.
func (r *TextRenderer) RenderAgreement(ctx context.Context, a *models.Agreement, parties AgreementParties) (string, error) {
	var buf bytes.Buffer
	if err := agreementTemplate.Execute(&buf, struct {
		A       *models.Agreement
		Parties AgreementParties
	}{a, parties}); err != nil {
		return "", fmt.Errorf("failed to render agreement: %w", err)
	}

	key := path.Join("agreements", a.FlatID, a.ID+".txt")
	url, err := r.store.Put(ctx, key, "text/plain; charset=utf-8", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to store agreement: %w", err)
	}
	return url, nil
}

func formatDate(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("2 Jan 2006")
}
