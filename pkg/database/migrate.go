package database

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema. All statements are idempotent
// (CREATE ... IF NOT EXISTS), so this is safe to run at every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type seedCategory struct {
	Name        string
	Slug        string
	Icon        string
	Description string
}

var defaultCategories = []seedCategory{
	{"Tanklar & Zırhlı Araçlar", "tanklar", "🔸", "Panzer, Sherman, T-34 ve diğer zırhlı araçlar"},
	{"Uçaklar & Hava Kuvvetleri", "ucaklar", "✈️", "Savaş uçakları, bombardıman uçakları, pilotlar"},
	{"Gemiler & Deniz Kuvvetleri", "gemiler", "🚢", "Savaş gemileri, denizaltılar, deniz muharebeleri"},
	{"Askerler & Portreler", "askerler", "👤", "Asker fotoğrafları, portreler, günlük yaşam"},
	{"Haritalar & Stratejiler", "haritalar", "🗺️", "Savaş haritaları, strateji planları, cephe hatları"},
	{"Savaş Sahneleri", "savas_sahneleri", "💥", "Muharebe fotoğrafları, çatışma anları"},
	{"Propaganda Posterleri", "posterler", "📜", "Dönemin propaganda afişleri ve posterleri"},
	{"Liderler & Generaller", "liderler", "👔", "Askeri ve siyasi liderler, generaller, komutanlar"},
}

// SeedCategories inserts the default category set, skipping slugs that
// already exist.
func SeedCategories(db *sql.DB) error {
	for _, c := range defaultCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug, icon, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(slug) DO NOTHING
		`, c.Name, c.Slug, c.Icon, c.Description)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
	}
	return nil
}
