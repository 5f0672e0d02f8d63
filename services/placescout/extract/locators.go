package extract

import "placescout/lib/browser"

// Probe is one place a field may be read from.
type Probe struct {
	Locator browser.Locator
	// read this attribute instead of the element text
	Attr string
	// evaluated inside the result element rather than the whole view
	Scoped bool
}

// Locators describes where every field lives, each list is tried in order.
type Locators struct {
	// clicked inside a result to open its detail view
	DetailTarget browser.Locator

	Name        []Probe
	Rating      []Probe
	ReviewCount []Probe
	Price       []Probe
	Address     []Probe
	Reservation []Probe
	Website     []Probe
	Phone       []Probe
	// elements carrying an html-encoded payload that embeds the share link
	Share []Probe

	// clicked to open the route panel when the address or name is missing
	RouteToggle []Probe
	// its Attr holds the labelled destination address
	Destination Probe
}

func scopedThenView(loc browser.Locator, attr string) []Probe {
	return []Probe{
		{Locator: loc, Attr: attr, Scoped: true},
		{Locator: loc, Attr: attr},
	}
}

var DefaultLocators = Locators{
	DetailTarget: browser.Locator{Selector: ".OSrXXb"},

	Name:   scopedThenView(browser.Locator{Selector: "div.RorkHe h3.BK5CCe"}, ""),
	Rating: scopedThenView(browser.Locator{Selector: "div.dHX2k"}, "aria-label"),
	ReviewCount: []Probe{
		{Locator: browser.Locator{Selector: "div.leIgTe"}, Attr: "aria-label", Scoped: true},
		{Locator: browser.Locator{Selector: "div.Ty81De div.leIgTe"}, Attr: "aria-label"},
	},
	Price:       scopedThenView(browser.Locator{Selector: "span", Text: "[€$£¥]"}, ""),
	Address:     scopedThenView(browser.Locator{Selector: "div.F2yIXb span"}, ""),
	Reservation: scopedThenView(browser.Locator{Selector: `a.K9ZSQ[href*="reserve"]`}, "href"),
	Website:     scopedThenView(browser.Locator{Selector: "a.n1obkb"}, "href"),
	Phone:       scopedThenView(browser.Locator{Selector: `a[jsaction*="F75qrd"]`}, "data-phone-number"),
	Share:       scopedThenView(browser.Locator{Selector: `div[jscontroller="XHXkqb"][data-ed]`}, "data-ed"),

	RouteToggle: scopedThenView(browser.Locator{Selector: "div.n1obkb.mI8Pwc"}, ""),
	Destination: Probe{
		Locator: browser.Locator{Selector: `input[aria-label^="Destination"], input[aria-label^="Desination"]`},
		Attr:    "aria-label",
	},
}
