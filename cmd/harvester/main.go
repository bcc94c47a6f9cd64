package main

import (
	"context"
	"flag"
	"log"
	"time"

	"warchive/internal/category"
	"warchive/internal/download"
	"warchive/internal/images"
	"warchive/internal/scraper"
	"warchive/pkg/database"
	"warchive/pkg/models"
	"warchive/pkg/utils"
)

// harvester populates the local database offline: it bulk-searches
// every category (or one, with -category) across the sources and
// upserts the results.
func main() {
	categorySlug := flag.String("category", "", "harvest a single category slug")
	limit := flag.Int("limit", 200, "max records per category per source")
	fetch := flag.Bool("download", false, "also download harvested assets")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(utils.DefaultDBPath())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
	if err := database.SeedCategories(db); err != nil {
		log.Fatalf("seed categories failed: %v", err)
	}

	catRepo := category.NewRepo(db)
	imgRepo := images.NewRepo(db)

	cats, err := catRepo.List(ctx)
	if err != nil {
		log.Fatalf("list categories: %v", err)
	}

	wm := scraper.NewWikimedia()
	nara := scraper.NewNationalArchives()
	archive := scraper.NewArchiveOrg()

	var svc *download.Service
	if *fetch {
		svc, err = download.NewService(utils.DefaultDownloadsDir())
		if err != nil {
			log.Fatalf("init download service: %v", err)
		}
	}

	var harvested, failed int
	for _, cat := range cats {
		if *categorySlug != "" && cat.Slug != *categorySlug {
			continue
		}

		log.Printf("harvesting %s", cat.Slug)

		var records []models.ImageRecord
		if res := wm.BulkSearch(ctx, cat.Slug, *limit); res.Success {
			records = append(records, res.Images...)
		} else {
			log.Printf("wikimedia bulk search %s: %s", cat.Slug, res.Error)
		}
		if res := nara.Browse(ctx, cat.Slug, *limit); res.Success {
			records = append(records, res.Images...)
		} else {
			log.Printf("nara browse %s: %s", cat.Slug, res.Error)
		}
		if res := archive.Browse(ctx, cat.Slug, *limit); res.Success {
			records = append(records, res.Images...)
		} else {
			log.Printf("archive.org browse %s: %s", cat.Slug, res.Error)
		}

		if len(records) == 0 {
			failed++
			continue
		}

		catID := cat.ID
		if err := imgRepo.UpsertRecords(ctx, records, &catID); err != nil {
			log.Printf("persist %s: %v", cat.Slug, err)
			failed++
			continue
		}
		harvested += len(records)
		log.Printf("%s: %d records", cat.Slug, len(records))

		if svc != nil {
			report := svc.DownloadBatch(ctx, records, cat.Slug, nil, nil)
			for _, d := range report.Details {
				if d.Status != models.StatusSuccess {
					continue
				}
				if err := imgRepo.MarkDownloaded(ctx, d.SourceURL, d.FilePath, ""); err != nil {
					log.Printf("mark downloaded: %v", err)
				}
			}
			log.Printf("%s: downloaded %d, skipped %d, failed %d",
				cat.Slug, report.Downloaded, report.Skipped, report.Failed)
		}
	}

	log.Printf("harvest done: %d records, %d categories failed", harvested, failed)
}
