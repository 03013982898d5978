package main

import (
	"bufio"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/core"
)

var descriptions = []string{
	"A lighthouse keeper finds letters from a sailor who vanished a century ago.",
	"Two rival chefs inherit the same restaurant and must share its kitchen for a year.",
	"An astronomer discovers a comet that returns every time someone in her family dies.",
	"A quiet village hides the last library of a forgotten empire.",
	"The history of salt, told through the cities that grew rich on it.",
	"A detective with no sense of smell solves crimes in a perfumery district.",
	"Poems written on the night trains between Taipei and Kaohsiung.",
	"A field guide to the birds of abandoned cities.",
	"A programmer wakes up inside the simulation she wrote in college.",
	"The memoir of a translator who worked for three governments at once.",
	"A family saga spanning four generations of tea growers in the mountains.",
	"A beginner's introduction to linear algebra with hand-drawn diagrams.",
	"Children's stories about a fox who keeps losing his shadow.",
	"An illustrated atlas of imaginary islands described by old sailors.",
	"A thriller set aboard a research vessel trapped in Antarctic ice.",
	"Essays on walking, slowness and the architecture of small towns.",
	"A young monk leaves the temple to deliver a single letter across the country.",
	"The economics of street markets, from Lagos to Hanoi.",
	"A ghost story told entirely through the logbook of a hotel night clerk.",
	"A practical guide to growing vegetables on a city balcony.",
}

var titleWords = [][]string{
	{"The", "A", "Last", "Silent", "Hidden", "Northern", "Paper", "Salt"},
	{"Lantern", "Harbor", "Orchard", "Archive", "Garden", "Comet", "River", "Kitchen"},
	{"of Glass", "at Dawn", "in Winter", "Keeper", "Letters", "Songs", "Atlas", "Road"},
}

var tagPool = []string{
	"小說", "歷史", "科幻", "推理", "詩集", "散文", "童書", "傳記",
	"fantasy", "mystery", "science", "travel", "cooking", "economics", "poetry", "memoir",
}

var authors = []string{
	"Lin Mei", "Chen Wei", "Amara Okafor", "Jonas Berg", "Sofia Marín", "Hiroshi Tanaka", "Priya Nair",
}

var (
	srcFile = flag.String("src", "", "file of descriptions, one per line")
	outFile = flag.String("out", "books.json", "catalog to write (.zst is compressed)")
	count   = flag.Int("n", 100, "number of books to generate")
	seed    = flag.Uint64("seed", 1, "random seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// linesFromFile returns the non-empty lines of a file.
func linesFromFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// generateBooks yields n synthetic books. Every seventh book has no tags so
// its tag text falls back to the title, and every eleventh has no book_id.
func generateBooks(n int, pool []string, rng *rand.Rand) iter.Seq[core.BookRecord] {
	return func(yield func(core.BookRecord) bool) {
		for i := range n {
			book := core.BookRecord{
				BookID:      fmt.Sprintf("seed-%05d", i),
				Title:       title(rng),
				Author:      authors[rng.IntN(len(authors))],
				Description: pool[rng.IntN(len(pool))],
				Tags:        tags(rng),
				Language:    core.DefaultLanguage,
				CoverURL:    fmt.Sprintf("https://covers.example.com/%05d.jpg", i),
			}
			if i%7 == 6 {
				book.Tags = []string{}
			}
			if i%11 == 10 {
				book.BookID = ""
			}
			if !yield(book) {
				return
			}
		}
	}
}

func title(rng *rand.Rand) string {
	parts := make([]string, len(titleWords))
	for i, words := range titleWords {
		parts[i] = words[rng.IntN(len(words))]
	}
	return strings.Join(parts, " ")
}

func tags(rng *rand.Rand) []string {
	picked := rng.Perm(len(tagPool))[:1+rng.IntN(3)]
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = tagPool[idx]
	}
	return out
}

func main() {
	flag.Parse()

	pool := descriptions
	if *srcFile != "" {
		lines, err := linesFromFile(*srcFile)
		if err != nil {
			slog.Error("error reading descriptions", "src", *srcFile, "err", err)
			os.Exit(1)
		}
		if len(lines) > 0 {
			pool = lines
		}
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	books := make([]core.BookRecord, 0, *count)
	for book := range generateBooks(*count, pool, rng) {
		books = append(books, book)
	}

	if err := catalog.Write(*outFile, books); err != nil {
		slog.Error("error writing catalog", "out", *outFile, "err", err)
		os.Exit(1)
	}
	slog.Info("catalog written", "out", *outFile, "books", len(books))
}
