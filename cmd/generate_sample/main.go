// Command generate_sample writes Kindle highlights exports for a few public
// domain books and optionally converts them, filling a demo history database.
// Usage: go run ./cmd/generate_sample [-dir samples] [-convert] [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/kindle-enex/internal/database"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/entities"
	"github.com/mrlokans/kindle-enex/internal/exporters"
	"github.com/mrlokans/kindle-enex/internal/kindle"
	"github.com/mrlokans/kindle-enex/internal/services"
	"github.com/mrlokans/kindle-enex/internal/utils"
)

const (
	defaultSampleDir        = "./samples"
	defaultDemoDatabasePath = "./demo/demo.db"
	defaultDemoOutputDir    = "./demo/enex"
	sampleFileExtension     = ".txt"
	sampleApplicationName   = "kindle-enex-demo"
)

// SampleBook is one generated export.
type SampleBook struct {
	Book       entities.BookProperties
	Highlights []entities.Highlight
}

func main() {
	dir := flag.String("dir", defaultSampleDir, "directory to write the highlights text files to")
	convert := flag.Bool("convert", false, "also convert every sample and record it in the demo database")
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file (with -convert)")
	outputDir := flag.String("output", defaultDemoOutputDir, "directory for generated .enex files (with -convert)")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("Failed to create sample directory: %v", err)
	}

	samples := getPublicDomainBooks()
	texts := make([]string, 0, len(samples))
	for _, s := range samples {
		text := kindle.Format(s.Book, s.Highlights)
		texts = append(texts, text)

		name := utils.SanitizeFilename(s.Book.Title) + sampleFileExtension
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Wrote: %s by %s (%d highlights) to %s", s.Book.Title, s.Book.Author, len(s.Highlights), path)
	}

	if !*convert {
		return
	}

	log.Printf("Generating demo database at %s...", *dbPath)

	// Start from an empty history
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	svc := services.NewConvertService(services.ConvertServiceConfig{
		Exporter:  exporters.NewEnexExporter(exporters.WithApplication(sampleApplicationName)),
		Store:     conversions.NewRepository(db.DB),
		OutputDir: *outputDir,
	})

	ctx := context.Background()
	for _, text := range texts {
		res, err := svc.Convert(ctx, services.ConvertRequest{Text: text, Source: services.SourceCLI})
		if err != nil {
			log.Printf("Failed to convert sample: %v", err)
			continue
		}
		log.Printf("Converted: %s -> %s", res.Book.Title, res.Filename)
	}

	log.Println("Demo database generated successfully!")
}

func getPublicDomainBooks() []SampleBook {
	return []SampleBook{
		// Marcus Aurelius - Meditations (Public Domain)
		{
			Book: entities.BookProperties{Title: "Meditations", Author: "Marcus Aurelius", LastAnnotated: "March 3, 2021"},
			Highlights: []entities.Highlight{
				{Quote: "You have power over your mind - not outside events. Realize this, and you will find strength.", Location: "112"},
				{Quote: "The happiness of your life depends upon the quality of your thoughts.", Location: "245", Note: "reread every morning"},
				{Quote: "Waste no more time arguing about what a good man should be. Be one.", Location: "1530"},
				{Quote: "The soul becomes dyed with the color of its thoughts.", Location: "1802"},
			},
		},

		// Seneca - Letters from a Stoic (Public Domain)
		{
			Book: entities.BookProperties{Title: "Letters from a Stoic", Author: "Seneca", LastAnnotated: "June 14, 2021"},
			Highlights: []entities.Highlight{
				{Quote: "We suffer more often in imagination than in reality.", Location: "88", Note: "compare with Meditations"},
				{Quote: "It is not that we have a short time to live, but that we waste a lot of it.", Location: "301"},
				{Quote: "Difficulties strengthen the mind, as labor does the body.", Location: "642"},
			},
		},

		// Charles Darwin - On the Origin of Species (Public Domain)
		{
			Book: entities.BookProperties{Title: "On the Origin of Species", Author: "Charles Darwin", LastAnnotated: "January 9, 2022"},
			Highlights: []entities.Highlight{
				{Quote: "There is grandeur in this view of life, with its several powers, having been originally breathed into a few forms or into one.", Location: "9120"},
				{Quote: "The love for all living creatures is the most noble attribute of man.", Location: "4410", Note: "attributed, check the source"},
			},
		},

		// Jane Austen - Pride and Prejudice (Public Domain)
		{
			Book: entities.BookProperties{Title: "Pride and Prejudice", Author: "Jane Austen", LastAnnotated: "August 21, 2022"},
			Highlights: []entities.Highlight{
				{Quote: "It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.", Location: "7"},
				{Quote: "I declare after all there is no enjoyment like reading! How much sooner one tires of any thing than of a book!", Location: "812", Note: "Caroline <not> Elizabeth & it is ironic"},
				{Quote: "Vanity and pride are different things, though the words are often used synonymously.", Location: "301"},
			},
		},

		// Mary Shelley - Frankenstein (Public Domain)
		{
			Book: entities.BookProperties{Title: "Frankenstein; or, The Modern Prometheus", Author: "Mary Shelley", LastAnnotated: "October 31, 2023"},
			Highlights: []entities.Highlight{
				{Quote: "Beware; for I am fearless, and therefore powerful.", Location: "2904"},
				{Quote: "Nothing is so painful to the human mind as a great and sudden change.", Location: "3310"},
				{Quote: "I ought to be thy Adam, but I am rather the fallen angel.", Location: "1704", Note: "Paradise Lost reference"},
			},
		},
	}
}
