package commands

import (
	"fmt"
	"time"

	"placescout/lib/browser"
	"placescout/lib/configutil"
	"placescout/services/placescout/scraper"
)

type BrowserConfig struct {
	// defaults to true
	Headless  *bool  `json:"headless"`
	Bin       string `json:"bin"`
	UserAgent string `json:"user_agent"`
}

type Config struct {
	Categories []string `json:"categories"`
	Localities []string `json:"localities"`
	SearchUrl  string   `json:"search_url"`
	// path of the json document records are kept in
	Store string `json:"store"`

	// Go duration strings, e.g. "1s" or "500ms"
	Pause       string `json:"pause"`
	DetailPause string `json:"detail_pause"`
	RoutePause  string `json:"route_pause"`
	Timeout     string `json:"timeout"`

	Browser BrowserConfig `json:"browser"`
}

const (
	defaultConfigPath = "placescout.json5"
	defaultStorePath  = "restaurants.json"
)

func defaultConfig() Config {
	headless := true
	return Config{
		Categories: []string{
			"restaurant italien",
			"pizzeria",
			"bistrot",
			"brasserie",
			"restaurant végétarien",
			"restaurant vegan",
			"restaurant indien",
			"restaurant japonais",
			"sushi",
			"crêperie",
			"burger",
			"restaurant chinois",
			"restaurant thaïlandais",
			"cuisine libanaise",
			"café",
			"boulangerie-pâtisserie",
			"traiteur",
			"poissonnerie",
			"steakhouse",
		},
		Localities: []string{
			"Paris",
			"Le Plessis-Robinson",
			"Boulogne-Billancourt",
			"Issy-les-Moulineaux",
			"Neuilly-sur-Seine",
			"Versailles",
			"Rueil-Malmaison",
			"Suresnes",
			"Nanterre",
			"Levallois-Perret",
			"Montrouge",
			"Châtenay-Malabry",
			"Fontenay-aux-Roses",
			"Lyon",
			"Marseille",
			"Lille",
			"Nice",
			"Bordeaux",
			"Toulouse",
			"Nantes",
			"Strasbourg",
			"Montpellier",
			"Grenoble",
		},
		SearchUrl:   "https://www.google.com/",
		Store:       defaultStorePath,
		Pause:       "1s",
		DetailPause: "3s",
		RoutePause:  "5s",
		Timeout:     "2s",
		Browser: BrowserConfig{
			Headless: &headless,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) " +
				"Chrome/119.0.0.0 Safari/537.36",
		},
	}
}

// readConfig reads path (and its local override) filling every field left
// unset from the defaults.
func readConfig(path string) (Config, error) {
	return configutil.ReadWithDefaults(path, defaultConfig())
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s '%s': must not be negative", field, value)
	}
	return d, nil
}

func (c Config) ScraperOptions() (scraper.Options, error) {
	opts := scraper.DefaultOptions()
	opts.SearchUrl = c.SearchUrl

	durations := []struct {
		field string
		value string
		out   *time.Duration
	}{
		{"pause", c.Pause, &opts.Pause},
		{"detail_pause", c.DetailPause, &opts.DetailPause},
		{"route_pause", c.RoutePause, &opts.RoutePause},
		{"timeout", c.Timeout, &opts.Timeout},
	}
	for _, d := range durations {
		parsed, err := parseDuration(d.field, d.value)
		if err != nil {
			return scraper.Options{}, err
		}
		*d.out = parsed
	}
	return opts, nil
}

func (c Config) RodOptions() browser.RodOptions {
	return browser.RodOptions{
		Headless:  c.Browser.Headless == nil || *c.Browser.Headless,
		Bin:       c.Browser.Bin,
		UserAgent: c.Browser.UserAgent,
	}
}
