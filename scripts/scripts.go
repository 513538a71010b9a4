// Package scripts holds the supporting scripts printed by join-exhibit and
// fills them with the exhibit map of a run.
package scripts

import (
	"embed"
	"encoding/json"
	"io/fs"
	"regexp"
	"sort"

	"github.com/cockroachdb/errors"
)

// ExhibitUpdate links exhibit mentions in a Google Docs document to the
// bundle.
const ExhibitUpdate = "google-docs-exhibit-update.js"

//go:embed code/*.js
var code embed.FS

var (
	ErrUnknownScript = errors.New("unknown script")
	ErrNoExhibitMap  = errors.New("script has no exhibitMap declaration")

	descriptions = map[string]string{
		ExhibitUpdate: "Google Docs exhibit update script",
	}
	exhibitMapDecl = regexp.MustCompile(`(?s)const exhibitMap =\s*\{.*?\n\}\s*;`)
)

// Script is an embedded script name with its description.
type Script struct {
	Name        string
	Description string
}

// List returns the embedded scripts sorted by name.
func List() []Script {
	entries, _ := fs.ReadDir(code, "code")
	out := make([]Script, 0, len(entries))
	for _, e := range entries {
		out = append(out, Script{Name: e.Name(), Description: descriptions[e.Name()]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Source(name string) (string, error) {
	data, err := code.ReadFile("code/" + name)
	if err != nil {
		return "", errors.Wrapf(ErrUnknownScript, "%q", name)
	}
	return string(data), nil
}

// RenderExhibitMap returns the script with its sample exhibitMap replaced
// by exhibitMap encoded as JSON.
func RenderExhibitMap(name string, exhibitMap any) (string, error) {
	src, err := Source(name)
	if err != nil {
		return "", err
	}
	js, err := json.MarshalIndent(exhibitMap, "", "\t")
	if err != nil {
		return "", errors.Wrap(err, "encode exhibit map")
	}
	loc := exhibitMapDecl.FindStringIndex(src)
	if loc == nil {
		return "", errors.Wrapf(ErrNoExhibitMap, "%q", name)
	}
	return src[:loc[0]] + "const exhibitMap =\n" + string(js) + "\n;" + src[loc[1]:], nil
}
