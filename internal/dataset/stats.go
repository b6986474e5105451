package dataset

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/tphakala/plantclef-go/internal/errors"
)

// Taxon selects the taxonomic rank a frequency table is computed for.
type Taxon string

const (
	TaxonSpecies Taxon = "species"
	TaxonGenus   Taxon = "genus"
	TaxonFamily  Taxon = "family"
)

// Taxa lists the supported ranks in dashboard button order.
var Taxa = []Taxon{TaxonGenus, TaxonFamily, TaxonSpecies}

// ParseTaxon accepts species, genus or family in any case.
func ParseTaxon(s string) (Taxon, error) {
	t := Taxon(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Taxa, t) {
		return t, nil
	}
	return "", errors.Newf("unknown taxon %q, expected one of species, genus, family", s).
		Category(errors.CategoryValidation).
		Build()
}

// Title returns the capitalised rank name.
func (t Taxon) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func (t Taxon) value(o *Observation) string {
	switch t {
	case TaxonGenus:
		return o.Genus
	case TaxonFamily:
		return o.Family
	default:
		return o.Species
	}
}

// FrequencyRow is one label of a cumulative frequency table.
type FrequencyRow struct {
	Label                string  `json:"label"`
	Count                int     `json:"value_count"`
	IndividualPercentage float64 `json:"individual_percentage"`
	CumulativePercentage float64 `json:"cumulative_percentage"`
	Index                int     `json:"index"`
}

// Frequencies counts taxon labels and returns them by ascending count, ties by
// label. Empty labels are not counted. The last row's cumulative percentage is 100.
func (t *Table) Frequencies(taxon Taxon) ([]FrequencyRow, error) {
	if _, err := ParseTaxon(string(taxon)); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	total := 0
	for i := range t.rows {
		if label := taxon.value(&t.rows[i]); label != "" {
			counts[label]++
			total++
		}
	}

	rows := make([]FrequencyRow, 0, len(counts))
	for label, n := range counts {
		rows = append(rows, FrequencyRow{Label: label, Count: n})
	}
	slices.SortFunc(rows, func(a, b FrequencyRow) int {
		return cmp.Or(cmp.Compare(a.Count, b.Count), strings.Compare(a.Label, b.Label))
	})

	running := 0
	for i := range rows {
		running += rows[i].Count
		rows[i].Index = i
		rows[i].IndividualPercentage = float64(rows[i].Count) / float64(total) * 100
		rows[i].CumulativePercentage = float64(running) / float64(total) * 100
	}

	return rows, nil
}

// ByCountDescending returns a copy of rows ordered for the dashboard table:
// highest count first, ties by label.
func ByCountDescending(rows []FrequencyRow) []FrequencyRow {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b FrequencyRow) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Label, b.Label))
	})
	return out
}

// BalancedReference returns the cumulative curve of a perfectly balanced
// distribution over n labels: (i+1)/n*100 for rank i.
func BalancedReference(n int) []float64 {
	ref := make([]float64, n)
	for i := range ref {
		ref[i] = float64(i+1) / float64(n) * 100
	}
	return ref
}

// OrganCount is the number of images of one organ.
type OrganCount struct {
	Organ string `json:"organ"`
	Count int    `json:"count"`
}

// OrganDistribution counts organs for species, or for the whole table when
// species is empty. Ordered by descending count, ties by organ name.
func (t *Table) OrganDistribution(species string) []OrganCount {
	counts := make(map[string]int)
	for i := range t.rows {
		o := &t.rows[i]
		if species != "" && o.Species != species {
			continue
		}
		if o.Organ != "" {
			counts[o.Organ]++
		}
	}

	out := make([]OrganCount, 0, len(counts))
	for organ, n := range counts {
		out = append(out, OrganCount{Organ: organ, Count: n})
	}
	slices.SortFunc(out, func(a, b OrganCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Organ, b.Organ))
	})
	return out
}

// Species returns the sorted distinct species names.
func (t *Table) Species() []string {
	seen := make(map[string]struct{})
	for i := range t.rows {
		if s := t.rows[i].Species; s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// HasSpecies reports whether any observation belongs to species.
func (t *Table) HasSpecies(species string) bool {
	return slices.ContainsFunc(t.rows, func(o Observation) bool { return o.Species == species })
}

// OrganImage points at one example image of an organ.
type OrganImage struct {
	Organ     string `json:"organ"`
	URL       string `json:"url"`
	BackupURL string `json:"image_backup_url"`
}

// ImagesByOrgan returns one image per organ of species, organs sorted
// ascending. With rnd nil the first observation of each organ is used,
// otherwise one is drawn at random.
func (t *Table) ImagesByOrgan(species string, rnd *rand.Rand) []OrganImage {
	byOrgan := make(map[string][]int)
	for i := range t.rows {
		o := &t.rows[i]
		if o.Species == species && o.Organ != "" {
			byOrgan[o.Organ] = append(byOrgan[o.Organ], i)
		}
	}

	organs := make([]string, 0, len(byOrgan))
	for organ := range byOrgan {
		organs = append(organs, organ)
	}
	slices.Sort(organs)

	out := make([]OrganImage, 0, len(organs))
	for _, organ := range organs {
		candidates := byOrgan[organ]
		pick := candidates[0]
		if rnd != nil {
			pick = candidates[rnd.IntN(len(candidates))]
		}
		o := &t.rows[pick]
		out = append(out, OrganImage{Organ: organ, URL: o.URL, BackupURL: o.BackupURL})
	}
	return out
}
