// Package launchd renders the property list that launchd reads to keep
// the database server running.
package launchd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Descriptor holds the fields of a KeepAlive launch agent
type Descriptor struct {
	Label            string `json:"label" yaml:"label"`
	Program          string `json:"program" yaml:"program"`
	DataDir          string `json:"data_dir" yaml:"data_dir"`
	LogFile          string `json:"log_file" yaml:"log_file"`
	UserName         string `json:"user_name" yaml:"user_name"`
	WorkingDirectory string `json:"working_directory" yaml:"working_directory"`
}

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>KeepAlive</key>
  <true/>
  <key>Label</key>
  <string>{{xml .Label}}</string>
  <key>ProgramArguments</key>
  <array>
    <string>{{xml .Program}}</string>
    <string>-D</string>
    <string>{{xml .DataDir}}</string>
    <string>-r</string>
    <string>{{xml .LogFile}}</string>
  </array>
  <key>RunAtLoad</key>
  <true/>
  <key>UserName</key>
  <string>{{xml .UserName}}</string>
  <key>WorkingDirectory</key>
  <string>{{xml .WorkingDirectory}}</string>
</dict>
</plist>
`

var tmpl = template.Must(template.New("plist").
	Funcs(template.FuncMap{"xml": escape}).
	Option("missingkey=error").
	Parse(plistTemplate))

func escape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Validate checks that every field the supervisor needs is present
func (d Descriptor) Validate() error {
	missing := []string{}
	for name, v := range map[string]string{
		"Label":            d.Label,
		"Program":          d.Program,
		"DataDir":          d.DataDir,
		"LogFile":          d.LogFile,
		"UserName":         d.UserName,
		"WorkingDirectory": d.WorkingDirectory,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("launchd: descriptor missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Render produces the property list document. Identical descriptors
// always render to identical bytes. Empty fields render as empty strings;
// use Validate before installing the result.
func Render(d Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("launchd: render plist: %w", err)
	}
	return buf.Bytes(), nil
}
