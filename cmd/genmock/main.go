// Command genmock writes a synthetic crime incident CSV in the 14-column
// dispatch schema, for local runs and load testing. Incidents scatter around
// a handful of Philadelphia hotspots so clustering has structure to find.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/crime.csv -rows 50000 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/crime-map-etl/internal/source"
)

// hotspot is a center incidents scatter around, with a spread in degrees.
type hotspot struct {
	name     string
	lon, lat float64
	spread   float64
	district string
}

var hotspots = []hotspot{
	{name: "Kensington", lon: -75.1250, lat: 39.9930, spread: 0.008, district: "24"},
	{name: "Center City", lon: -75.1640, lat: 39.9520, spread: 0.006, district: "06"},
	{name: "West Philadelphia", lon: -75.2300, lat: 39.9600, spread: 0.010, district: "18"},
	{name: "North Philadelphia", lon: -75.1550, lat: 40.0050, spread: 0.009, district: "22"},
	{name: "South Philadelphia", lon: -75.1700, lat: 39.9250, spread: 0.008, district: "03"},
	{name: "Frankford", lon: -75.0850, lat: 40.0230, spread: 0.007, district: "15"},
}

var categories = []struct {
	name string
	ucr  string
}{
	{"Thefts", "600"},
	{"Theft from Vehicle", "600"},
	{"Other Assaults", "800"},
	{"Vandalism/Criminal Mischief", "1400"},
	{"Burglary Residential", "500"},
	{"Narcotic / Drug Law Violations", "1800"},
	{"Fraud", "1100"},
	{"Motor Vehicle Theft", "700"},
	{"Aggravated Assault No Firearm", "400"},
}

var streets = []string{"N FRONT ST", "KENSINGTON AVE", "MARKET ST", "BROAD ST", "LANCASTER AVE", "PASSYUNK AVE", "FRANKFORD AVE", "GIRARD AVE"}

type options struct {
	out         string
	rows        int
	seed        uint64
	from        time.Time
	months      int
	missingRate float64
	unknownRate float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the generated CSV")
	rows := flag.Int("rows", 10000, "number of data rows")
	seed := flag.Uint64("seed", 1, "random seed; equal seeds give identical files")
	from := flag.String("from", "2015-01", "first month, YYYY-MM")
	months := flag.Int("months", 12, "number of months to spread incidents over")
	missing := flag.Float64("missing", 0.01, "fraction of rows without coordinates")
	unknown := flag.Float64("unknown", 0.005, "fraction of rows with a blank category")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	start, err := time.Parse("2006-01", *from)
	if err != nil {
		return fmt.Errorf("invalid -from %q: %w", *from, err)
	}
	if *rows < 0 || *months < 1 {
		return fmt.Errorf("-rows must be >= 0 and -months >= 1")
	}

	opts := options{
		out:         *out,
		rows:        *rows,
		seed:        *seed,
		from:        start,
		months:      *months,
		missingRate: *missing,
		unknownRate: *unknown,
	}
	stats, err := generate(opts)
	if err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", opts.rows, opts.out)
	printStats(stats)
	return nil
}

type genStats struct {
	byCategory map[string]int
	byHotspot  map[string]int
	noCoords   int
}

func generate(opts options) (genStats, error) {
	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return genStats{}, err
	}
	f, err := os.Create(opts.out)
	if err != nil {
		return genStats{}, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(source.Columns[:]); err != nil {
		return genStats{}, err
	}

	rng := rand.New(rand.NewPCG(opts.seed, 0))
	stats := genStats{byCategory: map[string]int{}, byHotspot: map[string]int{}}
	for i := range opts.rows {
		rec := mockRow(rng, opts, i, &stats)
		if err := w.Write(rec); err != nil {
			return genStats{}, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return genStats{}, err
	}
	return stats, f.Close()
}

func mockRow(rng *rand.Rand, opts options, i int, stats *genStats) []string {
	h := hotspots[rng.IntN(len(hotspots))]
	c := categories[rng.IntN(len(categories))]

	month := opts.from.AddDate(0, rng.IntN(opts.months), 0)
	day := month.Add(time.Duration(rng.IntN(28*24*60)) * time.Minute)

	lon := strconv.FormatFloat(h.lon+rng.NormFloat64()*h.spread, 'f', 6, 64)
	lat := strconv.FormatFloat(h.lat+rng.NormFloat64()*h.spread, 'f', 6, 64)
	if rng.Float64() < opts.missingRate {
		lon, lat = "", ""
		stats.noCoords++
	} else {
		stats.byHotspot[h.name]++
	}

	category := c.name
	if rng.Float64() < opts.unknownRate {
		category = ""
	}
	stats.byCategory[category]++

	return []string{
		h.district,
		strconv.Itoa(1 + rng.IntN(4)),
		day.Format("2006-01-02 15:04:05"),
		day.Format("2006-01-02"),
		day.Format("15:04:05"),
		strconv.Itoa(day.Hour()),
		fmt.Sprintf("%d%s%06d", day.Year(), h.district, i),
		fmt.Sprintf("%d BLOCK %s", 100*(1+rng.IntN(60)), streets[rng.IntN(len(streets))]),
		c.ucr,
		category,
		strconv.Itoa(1 + rng.IntN(22)),
		month.Format("2006-01"),
		lon,
		lat,
	}
}

type nameCount struct {
	name  string
	count int
}

func sorted(m map[string]int) []nameCount {
	out := make([]nameCount, 0, len(m))
	for k, v := range m {
		out = append(out, nameCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func printStats(s genStats) {
	fmt.Println("\n=== Generated incident stats ===")
	fmt.Printf("Without coordinates: %d\n", s.noCoords)
	fmt.Println("By category:")
	for _, c := range sorted(s.byCategory) {
		name := c.name
		if name == "" {
			name = "(blank)"
		}
		fmt.Printf("  %-34s %d\n", name, c.count)
	}
	fmt.Println("By hotspot:")
	for _, h := range sorted(s.byHotspot) {
		fmt.Printf("  %-34s %d\n", h.name, h.count)
	}
}
