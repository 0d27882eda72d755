// Package caveats renders the post-install guidance shown after a build.
package caveats

import (
	"bytes"
	"fmt"
	"text/template"
)

// Data holds the resolved paths substituted into the guidance
type Data struct {
	Formula   string // Formula name, used in the brew command example
	DocsURL   string
	DataDir   string
	LogFile   string
	PlistPath string
	Bits64    bool
}

const guidanceTemplate = `To build plpython against a specific Python, set PYTHON prior to brewing:
  PYTHON=/usr/local/bin/python  brew install {{.Formula}}
See:
  {{.DocsURL}}


If this is your first install, create a database with:
    initdb {{.DataDir}}

Automatically load on login with:
    launchctl load -w {{.PlistPath}}

Or start manually with:
    pg_ctl -D {{.DataDir}} -l {{.LogFile}} start

And stop with:
    pg_ctl -D {{.DataDir}} stop -s -m fast
{{- if .Bits64}}

If you want to install the postgres gem, including ARCHFLAGS is recommended:
    env ARCHFLAGS="-arch x86_64" gem install postgres

To install gems without sudo, see the Homebrew wiki.
{{- end}}
`

var tmpl = template.Must(template.New("caveats").Option("missingkey=error").Parse(guidanceTemplate))

// Render produces the guidance text
func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("caveats: render: %w", err)
	}
	return buf.String(), nil
}
