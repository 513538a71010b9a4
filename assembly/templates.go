package assembly

import (
	"io"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/valyala/fasttemplate"
)

// Exhibit notice templates. Placeholders are written {key}; {exhibit} is
// always the current exhibit id.
const (
	SwearOrAffirmTemplate = `This is Exhibit "{exhibit}" referred to in the affidavit of
{name}                    {date}
sworn (or affirmed) before me on [dd/mmm/yyyy]

___________________________________________
A Commissioner for taking Affidavits for {province}`

	SwearTemplate = `This is Exhibit "{exhibit}" referred to in the affidavit of
{name}                    {date}
sworn before me on [dd/mmm/yyyy]

___________________________________________
A Commissioner for taking Affidavits for {province}`

	AffirmTemplate = `This is Exhibit "{exhibit}" referred to in the affidavit of
{name}                    {date}
affirmed before me on [dd/mmm/yyyy]

___________________________________________
A Commissioner for taking Affidavits for {province}`

	categoryTemplate = `This is Exhibit "{category}.{exhibit}"`
)

// NamedTemplate resolves the exhibitTemplateName values of the config sheet.
func NamedTemplate(name string) (string, error) {
	switch name {
	case "swear":
		return SwearTemplate, nil
	case "affirm":
		return AffirmTemplate, nil
	}
	return "", errors.Wrapf(ErrConfig, "exhibit template %q unsupported, supported: swear, affirm", name)
}

// SubstituteSource selects where template values come from besides -t.
type SubstituteSource int

const (
	// SubstituteTableAndDate reads the text sheet and derives {date} from
	// the exhibit key.
	SubstituteTableAndDate SubstituteSource = iota
	SubstituteTable
	SubstituteNone
)

var datedKey = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})-.*$`)

// KeyDate formats the yyyymmdd prefix of key as yyyy/Mon/dd.
func KeyDate(key string) (string, error) {
	m := datedKey.FindStringSubmatch(key)
	if m == nil {
		return "", errors.Wrapf(ErrConfig, "index key does not match date pattern yyyymmdd-...: %q", key)
	}
	d, err := time.Parse("20060102", m[1]+m[2]+m[3])
	if err != nil {
		return "", errors.Wrapf(ErrConfig, "index key date %q: %v", key, err)
	}
	return d.Format("2006/Jan/02"), nil
}

// ValidateTemplate checks that every placeholder of tmpl other than
// {exhibit} has a value in subs.
func ValidateTemplate(tmpl string, subs map[string]string) error {
	t, err := fasttemplate.NewTemplate(tmpl, "{", "}")
	if err != nil {
		return errors.Wrapf(ErrConfig, "template: %v", err)
	}
	_, err = t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		if tag == "exhibit" {
			return w.Write([]byte("AA"))
		}
		v, ok := subs[tag]
		if !ok {
			return 0, errors.Wrapf(ErrConfig, "template key not found in substitutes: %s", tag)
		}
		return w.Write([]byte(v))
	})
	return err
}

// Render substitutes subs into tmpl. Unknown placeholders are kept.
func Render(tmpl string, subs map[string]string) string {
	t, err := fasttemplate.NewTemplate(tmpl, "{", "}")
	if err != nil {
		return tmpl
	}
	return t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := subs[tag]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte("{" + tag + "}"))
	})
}
