package render

import (
	"bytes"
	"embed"
	"text/template"

	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

//go:embed licenses/*.txt
var licenseFS embed.FS

var licenseTemplates = template.Must(template.ParseFS(licenseFS, "licenses/*.txt"))

// renderLicense returns the LICENSE text, or nil for NONE.
func renderLicense(l project.License, holder string, year int) ([]byte, error) {
	if l == project.LicenseNone {
		return nil, nil
	}
	var buf bytes.Buffer
	err := licenseTemplates.ExecuteTemplate(&buf, string(l)+".txt", struct {
		Year   int
		Holder string
	}{year, holder})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
