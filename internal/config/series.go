package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"quarra/internal/core"
	"quarra/internal/sheets"
)

// SeriesConfig describes how one series is read, exported and displayed.
type SeriesConfig struct {
	Kind         core.SeriesKind `yaml:"kind"`
	Sheet        string          `yaml:"sheet"`
	ExportSheet  string          `yaml:"export_sheet"`
	Title        string          `yaml:"title"`
	TrendTitle   string          `yaml:"trend_title,omitempty"`
	Description  string          `yaml:"description"`
	Color        string          `yaml:"color"`
	FillColor    string          `yaml:"fill_color"`
	DefaultField string          `yaml:"default_field,omitempty"`
}

// SeriesCatalog holds the configuration of every series, in display order.
type SeriesCatalog struct {
	DateColumn string         `yaml:"date_column,omitempty"`
	Series     []SeriesConfig `yaml:"series"`
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DefaultSeriesCatalog returns the catalog of the company dashboard.
func DefaultSeriesCatalog() *SeriesCatalog {
	return &SeriesCatalog{
		DateColumn: "Data",
		Series: []SeriesConfig{
			{
				Kind:        core.Production,
				Sheet:       "Produzione",
				ExportSheet: "Weekly Production",
				Title:       "Weekly Production",
				TrendTitle:  "Monthly Production",
				Description: "Value of goods produced this week",
				Color:       "#004C99",
				FillColor:   "#B0C4DE",
			},
			{
				Kind:        core.Income,
				Sheet:       "Entrate",
				ExportSheet: "Weekly Bank Income",
				Title:       "Weekly Bank Income",
				TrendTitle:  "Monthly Bank Income",
				Description: "Cash income registered this week",
				Color:       "#2E8B57",
				FillColor:   "#C1E1C1",
			},
			{
				Kind:        core.Expense,
				Sheet:       "Uscite",
				ExportSheet: "Weekly Bank Expenses",
				Title:       "Weekly Bank Expenses",
				TrendTitle:  "Monthly Bank Expenses",
				Description: "Cash outflows this week",
				Color:       "#B22222",
				FillColor:   "#F08080",
			},
			{
				Kind:        core.Balance,
				Sheet:       "Saldo",
				ExportSheet: "Weekly Balance",
				Title:       "Weekly Balance",
				TrendTitle:  "Monthly Balance",
				Description: "Balance status at end of this week",
				Color:       "#FFD700",
				FillColor:   "#FFFACD",
			},
		},
	}
}

// LoadSeriesCatalog reads a YAML catalog. Series not listed, and fields left
// empty, keep their defaults. An empty path returns the defaults.
func LoadSeriesCatalog(path string) (*SeriesCatalog, error) {
	if path == "" {
		return DefaultSeriesCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("series config file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("read series config %s: %w", path, err)
	}

	var override SeriesCatalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse series config %s: %w", path, err)
	}

	catalog := DefaultSeriesCatalog()
	if err := catalog.merge(override); err != nil {
		return nil, fmt.Errorf("invalid series config %s: %w", path, err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series config %s: %w", path, err)
	}
	return catalog, nil
}

func (c *SeriesCatalog) merge(o SeriesCatalog) error {
	if o.DateColumn != "" {
		c.DateColumn = o.DateColumn
	}
	seen := map[core.SeriesKind]bool{}
	for _, s := range o.Series {
		kind, err := core.ParseSeriesKind(string(s.Kind))
		if err != nil {
			return err
		}
		if seen[kind] {
			return fmt.Errorf("series %q listed twice", kind)
		}
		seen[kind] = true

		dst := c.lookup(kind)
		setIf(&dst.Sheet, s.Sheet)
		setIf(&dst.ExportSheet, s.ExportSheet)
		setIf(&dst.Title, s.Title)
		setIf(&dst.TrendTitle, s.TrendTitle)
		setIf(&dst.Description, s.Description)
		setIf(&dst.Color, s.Color)
		setIf(&dst.FillColor, s.FillColor)
		setIf(&dst.DefaultField, s.DefaultField)
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *SeriesCatalog) lookup(kind core.SeriesKind) *SeriesConfig {
	for i := range c.Series {
		if c.Series[i].Kind == kind {
			return &c.Series[i]
		}
	}
	c.Series = append(c.Series, SeriesConfig{Kind: kind})
	return &c.Series[len(c.Series)-1]
}

// Validate checks the catalog entries.
func (c *SeriesCatalog) Validate() error {
	var errs []error
	exportSheets := map[string]core.SeriesKind{}
	for _, s := range c.Series {
		if !s.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("invalid series kind %q", s.Kind))
			continue
		}
		if s.Sheet == "" {
			errs = append(errs, fmt.Errorf("%s: sheet is required", s.Kind))
		}
		if s.ExportSheet == "" {
			errs = append(errs, fmt.Errorf("%s: export_sheet is required", s.Kind))
		} else if utf8.RuneCountInString(s.ExportSheet) > 31 {
			errs = append(errs, fmt.Errorf("%s: export_sheet %q exceeds 31 characters", s.Kind, s.ExportSheet))
		} else if strings.ContainsAny(s.ExportSheet, `:\/?*[]`) {
			errs = append(errs, fmt.Errorf("%s: export_sheet %q contains one of : \\ / ? * [ ]", s.Kind, s.ExportSheet))
		} else if strings.HasPrefix(s.ExportSheet, "'") || strings.HasSuffix(s.ExportSheet, "'") {
			errs = append(errs, fmt.Errorf("%s: export_sheet %q cannot start or end with an apostrophe", s.Kind, s.ExportSheet))
		} else if other, ok := exportSheets[s.ExportSheet]; ok {
			errs = append(errs, fmt.Errorf("%s: export_sheet %q already used by %s", s.Kind, s.ExportSheet, other))
		} else {
			exportSheets[s.ExportSheet] = s.Kind
		}
		for _, color := range []string{s.Color, s.FillColor} {
			if !hexColor.MatchString(color) {
				errs = append(errs, fmt.Errorf("%s: invalid color %q", s.Kind, color))
			}
		}
	}
	return errors.Join(errs...)
}

// Get returns the configuration of kind. Every valid kind is present.
func (c *SeriesCatalog) Get(kind core.SeriesKind) SeriesConfig {
	for _, s := range c.Series {
		if s.Kind == kind {
			return s
		}
	}
	for _, s := range DefaultSeriesCatalog().Series {
		if s.Kind == kind {
			return s
		}
	}
	return SeriesConfig{Kind: kind}
}

// Layout maps the catalog onto the source layout.
func (c *SeriesCatalog) Layout() sheets.Layout {
	l := sheets.Layout{Sheets: map[core.SeriesKind]string{}, DateColumn: c.DateColumn}
	for _, s := range c.Series {
		l.Sheets[s.Kind] = s.Sheet
	}
	return l
}
