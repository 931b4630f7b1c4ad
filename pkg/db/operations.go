package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dtnitsch/bookmark-organizer/models"
)

// Category is one persisted category row.
type Category struct {
	CategoryID int64
	Name       string
	Bookmarks  int
}

// SaveRun stores one categorization result in a single transaction:
// categories are created on demand, every ref becomes a bookmark row.
// Source bookmarks (keyed by URL) supply the metadata refs do not carry.
func (db *DB) SaveRun(cm *models.CategoryMap, source []models.Bookmark) error {
	byURL := make(map[string]models.Bookmark, len(source))
	for _, bm := range source {
		if _, ok := byURL[bm.URL]; !ok {
			byURL[bm.URL] = bm
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range cm.Names() {
		categoryID, err := findOrCreateCategory(tx, name)
		if err != nil {
			return err
		}
		for _, ref := range cm.Items(name) {
			src := byURL[ref.URL]
			_, err := tx.Exec(`
				INSERT INTO bookmarks (url, title, description, folder, language, add_date, last_modified, source_browser, category_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, ref.URL, ref.Title, src.Description, src.Folder, src.Language, src.AddDate, src.LastModified, src.SourceBrowser, categoryID)
			if err != nil {
				return fmt.Errorf("failed to insert bookmark: %w", err)
			}
		}
	}

	return tx.Commit()
}

func findOrCreateCategory(tx *sql.Tx, name string) (int64, error) {
	var existingID int64
	err := tx.QueryRow("SELECT category_id FROM categories WHERE name = ?", name).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing category: %w", err)
	}

	result, err := tx.Exec("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	return result.LastInsertId()
}

// ListCategories returns all categories with their bookmark counts,
// oldest first.
func (db *DB) ListCategories() ([]Category, error) {
	rows, err := db.Query(`
		SELECT c.category_id, c.name, COUNT(b.bookmark_id)
		FROM categories c
		LEFT JOIN bookmarks b ON b.category_id = c.category_id
		GROUP BY c.category_id, c.name
		ORDER BY c.category_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Bookmarks); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BookmarksByCategory returns the bookmarks stored under a category name.
func (db *DB) BookmarksByCategory(name string) ([]models.Bookmark, error) {
	rows, err := db.Query(`
		SELECT b.url, b.title, COALESCE(b.description, ''), COALESCE(b.folder, ''),
		       COALESCE(b.language, ''), COALESCE(b.add_date, ''), COALESCE(b.last_modified, ''),
		       COALESCE(b.source_browser, '')
		FROM bookmarks b
		JOIN categories c ON c.category_id = b.category_id
		WHERE c.name = ?
		ORDER BY b.bookmark_id
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var out []models.Bookmark
	for rows.Next() {
		var bm models.Bookmark
		if err := rows.Scan(&bm.URL, &bm.Title, &bm.Description, &bm.Folder, &bm.Language, &bm.AddDate, &bm.LastModified, &bm.SourceBrowser); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

// SaveStructure stores an optimized folder hierarchy as a JSON document.
func (db *DB) SaveStructure(name string, st *models.Structure) (int64, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal structure: %w", err)
	}

	result, err := db.Exec("INSERT INTO structures (name, document) VALUES (?, ?)", name, string(doc))
	if err != nil {
		return 0, fmt.Errorf("failed to insert structure: %w", err)
	}
	return result.LastInsertId()
}

// LatestStructure returns the most recently stored hierarchy, or nil when
// none has been saved.
func (db *DB) LatestStructure() (*models.Structure, error) {
	var doc string
	err := db.QueryRow("SELECT document FROM structures ORDER BY structure_id DESC LIMIT 1").Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest structure: %w", err)
	}

	var st models.Structure
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal structure: %w", err)
	}
	return &st, nil
}
