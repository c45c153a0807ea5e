package packaging

import (
	"bytes"
	"strings"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
)

func init() {
	// Desktop entries are key=value with no alignment, and no blank
	// line after the group.
	ini.PrettyFormat = false
	ini.PrettySection = false
}

const desktopEntryGroup = "Desktop Entry"

// desktopEntry renders share/applications/<name>.desktop.
func (p *Packager) desktopEntry() (string, error) {
	// Categories are ';' separated, which must not be read as a comment
	// marker and quoted.
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, []byte(""))
	if err != nil {
		return "", errors.Wrap(err, "creating desktop entry")
	}

	section, err := cfg.NewSection(desktopEntryGroup)
	if err != nil {
		return "", errors.Wrap(err, "creating desktop entry group")
	}

	categories := ""
	if len(p.product.Categories) > 0 {
		categories = strings.Join(p.product.Categories, ";") + ";"
	}

	for _, kv := range [][2]string{
		{"Name", p.product.Name},
		{"Comment", p.product.Headline},
		{"Exec", p.product.ExecutableName()},
		{"Terminal", "false"},
		{"Type", "Application"},
		{"Icon", p.product.Name},
		{"Categories", categories},
		{"GenericName", p.product.Name},
	} {
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return "", errors.Wrapf(err, "setting desktop entry key %s", kv[0])
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return "", errors.Wrap(err, "writing desktop entry")
	}
	return buf.String(), nil
}
