package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments & warnings from the
// normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerated fields prior to default
// application. It mutates the config in place and returns a result
// describing any coercions. Unknown values fall back to the category
// default rather than failing the load.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}
	normalizeValidation(&c.Validation, res)
	normalizeTheme(&c.Theme, res)
	return res, nil
}

func normalizeValidation(v *ValidationConfig, res *NormalizationResult) {
	fields := []struct {
		name string
		sev  *Severity
		def  Severity
	}{
		{"validation.omitted_files", &v.OmittedFiles, SeverityInfo},
		{"validation.broken_links", &v.BrokenLinks, SeverityWarn},
		{"validation.absolute_links", &v.AbsoluteLinks, SeverityInfo},
		{"validation.unrecognized_links", &v.UnrecognizedLinks, SeverityWarn},
		{"validation.anchors", &v.Anchors, SeverityWarn},
	}
	for _, f := range fields {
		raw := string(*f.sev)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if sev := NormalizeSeverity(raw); sev != "" {
			if *f.sev != sev {
				res.Warnings = append(res.Warnings, warnChanged(f.name, raw, string(sev)))
				*f.sev = sev
			}
			continue
		}
		res.Warnings = append(res.Warnings, warnUnknown(f.name, raw, string(f.def)))
		*f.sev = f.def
	}
}

func normalizeTheme(t *Theme, res *NormalizationResult) {
	for i := range t.Palette {
		scheme := strings.ToLower(strings.TrimSpace(t.Palette[i].Scheme))
		switch scheme {
		case "", "default", "slate":
			if t.Palette[i].Scheme != scheme {
				res.Warnings = append(res.Warnings, warnChanged(paletteField(i), t.Palette[i].Scheme, scheme))
				t.Palette[i].Scheme = scheme
			}
		default:
			res.Warnings = append(res.Warnings, warnUnknown(paletteField(i), t.Palette[i].Scheme, "default"))
			t.Palette[i].Scheme = "default"
		}
	}
}

func paletteField(i int) string { return fmt.Sprintf("theme.palette[%d].scheme", i) }

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
