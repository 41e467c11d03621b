// Package discover turns a FilterState into a catalog request: free-text
// search when a query is typed, filtered discovery otherwise.
package discover

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/handsomefox/nextep/internal/media"
)

const (
	SearchEndpoint = "/search/multi"

	DefaultLocale               = "pt-BR"
	DefaultCertificationCountry = "BR"

	// AnimationGenreID is the catalog's Animation genre, shared by movies and tv.
	AnimationGenreID = "16"
	AnimeLanguage    = "ja"

	minQueryLen = 2
)

type Mode int

const (
	ModeDiscover Mode = iota
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "discover"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "discover":
		*m = ModeDiscover
	case "search":
		*m = ModeSearch
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

type Param struct {
	Key   string
	Value string
}

// Request is an outbound catalog call: endpoint plus ordered parameters.
// Credentials are added by the client that executes it.
type Request struct {
	Mode     Mode
	Kind     media.Kind
	Endpoint string
	Params   []Param
}

func (r *Request) Get(key string) (string, bool) {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (r *Request) Query() url.Values {
	values := make(url.Values, len(r.Params))
	for _, p := range r.Params {
		values.Add(p.Key, p.Value)
	}
	return values
}

// Page is the requested page number, 1 when absent.
func (r *Request) Page() int {
	raw, ok := r.Get("page")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (r *Request) String() string {
	return r.Endpoint + "?" + r.Query().Encode()
}

func (r *Request) add(key, value string) {
	r.Params = append(r.Params, Param{Key: key, Value: value})
}

type Options struct {
	Locale               string
	CertificationCountry string
	Limits               Limits
}

type Builder struct {
	locale  string
	country string
	limits  Limits
}

func NewBuilder(opts Options) (*Builder, error) {
	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = DefaultLocale
	}
	if _, err := language.Parse(locale); err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	country := strings.ToUpper(strings.TrimSpace(opts.CertificationCountry))
	if country == "" {
		country = DefaultCertificationCountry
	}
	if _, err := language.ParseRegion(country); err != nil {
		return nil, fmt.Errorf("invalid certification country %q: %w", country, err)
	}

	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	if err := limits.validate(); err != nil {
		return nil, err
	}

	return &Builder{locale: locale, country: country, limits: limits}, nil
}

func (b *Builder) Limits() Limits { return b.limits }
func (b *Builder) Locale() string { return b.locale }

func (b *Builder) Mode(f *FilterState) Mode {
	if _, ok := f.SearchText(); ok {
		return ModeSearch
	}
	return ModeDiscover
}

// Build produces the request for page of f. Search mode always asks for
// page 1 and ignores every other filter.
func (b *Builder) Build(f *FilterState, page int) Request {
	if q, ok := f.SearchText(); ok {
		return b.search(q)
	}
	if page < 1 {
		page = 1
	}
	return b.discover(f, page)
}

func (b *Builder) search(q string) Request {
	req := Request{Mode: ModeSearch, Endpoint: SearchEndpoint}
	req.add("query", q)
	req.add("include_adult", "false")
	req.add("language", b.locale)
	req.add("page", "1")
	return req
}

func (b *Builder) discover(f *FilterState, page int) Request {
	kind := f.PrimaryKind()
	req := Request{Mode: ModeDiscover, Kind: kind, Endpoint: "/discover/" + string(kind)}

	req.add("language", b.locale)
	req.add("page", strconv.Itoa(page))

	field, dir := f.SortField, f.SortDirection
	if !field.Valid() {
		field = SortPopularity
	}
	if !dir.Valid() {
		dir = Desc
	}
	req.add("sort_by", field.param(kind)+"."+string(dir))

	if genres := genreList(f); len(genres) > 0 {
		sep := "|"
		if f.MatchAllGenres {
			sep = ","
		}
		req.add("with_genres", strings.Join(genres, sep))
	}
	if f.Anime {
		req.add("with_original_language", AnimeLanguage)
	}

	req.add("vote_average.gte", formatFloat(f.VoteAverage.Min))
	req.add("vote_average.lte", formatFloat(f.VoteAverage.Max))
	req.add("vote_count.gte", strconv.Itoa(f.VoteCount.Min))
	if f.VoteCount.Max < b.limits.VoteCountCeiling {
		req.add("vote_count.lte", strconv.Itoa(f.VoteCount.Max))
	}

	dateKey := "primary_release_date"
	if kind == media.TV {
		dateKey = "first_air_date"
	}
	if f.ReleaseYear.Min > 0 {
		req.add(dateKey+".gte", fmt.Sprintf("%04d-01-01", f.ReleaseYear.Min))
	}
	if f.ReleaseYear.Max > 0 {
		req.add(dateKey+".lte", fmt.Sprintf("%04d-12-31", f.ReleaseYear.Max))
	}

	if kind == media.Movie {
		req.add("certification_country", b.country)
		if f.MinAgeRating != 0 {
			req.add("certification.gte", f.MinAgeRating.String())
		}
		if f.MaxAgeRating != 0 {
			req.add("certification.lte", f.MaxAgeRating.String())
		}
	}
	return req
}

func genreList(f *FilterState) []string {
	out := make([]string, 0, len(f.GenreIDs)+1)
	for _, id := range f.GenreIDs {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if f.Anime && !slices.Contains(out, AnimationGenreID) {
		out = append(out, AnimationGenreID)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
