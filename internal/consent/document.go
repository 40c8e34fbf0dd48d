package consent

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

// docTemplate reconstructs the captured pen strokes as a single SVG path.
// The viewBox must match the capture canvas dimensions exactly or the
// strokes render distorted.
var docTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Consent - {{.PatientName}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 20px; }
.signature { border: 1px solid #ccc; margin-top: 24px; }
.meta { color: #777; font-size: 12px; margin-top: 8px; }
</style>
</head>
<body>
<h1>Patient Consent - Curalis</h1>
<p>I, {{.PatientName}}, consent to the collection and processing of my
health follow-up data for the purpose of my treatment plan, and confirm the
signature below was provided by me.</p>
<div class="signature">
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{.Width}} {{.Height}}" width="{{.Width}}" height="{{.Height}}">
<path d="{{.PathData}}" fill="none" stroke="#000" stroke-width="2" stroke-linecap="round"/>
</svg>
</div>
<p class="meta">Signed at {{.SignedAt}}</p>
</body>
</html>
`))

type docData struct {
	PatientName string
	Width       int
	Height      int
	PathData    string
	SignedAt    string
}

// Document renders the consent HTML for a captured signature. Pure: the same
// signature always yields the same document.
func Document(sig model.Signature, patientName string) (string, error) {
	data := docData{
		PatientName: patientName,
		Width:       sig.Width,
		Height:      sig.Height,
		PathData:    strings.Join(sig.Paths, " "),
		SignedAt:    sig.CapturedAt.Format("2006-01-02 15:04 MST"),
	}

	var sb strings.Builder
	if err := docTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render consent document: %w", err)
	}
	return sb.String(), nil
}

// WriteDocument lands the rendered document in dir for the platform share
// step and returns its path.
func WriteDocument(dir string, sig model.Signature, patientName string) (string, error) {
	doc, err := Document(sig, patientName)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create consent dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("consent-%s.html", sig.CapturedAt.Format("20060102-150405")))
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		return "", fmt.Errorf("write consent document: %w", err)
	}
	return path, nil
}
