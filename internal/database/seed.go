package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"uch/internal/markdown"
)

// SeedAdminEmail is the login of the development admin account.
const SeedAdminEmail = "admin@uch.local"

const welcomeMarkdown = "# Welcome\n\nThis is the first article of the blog. " +
	"Edit or delete it from the **admin panel**.\n\n" +
	"```go\nfmt.Println(\"hello, blog\")\n```\n"

// Seed populates the database with initial development data: an admin
// user, a category and a published welcome article. It does nothing when
// any user already exists. The admin will be prompted to set up 2FA on
// first login (totp_enabled = false).
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	html, err := markdown.ToHTML(welcomeMarkdown)
	if err != nil {
		return fmt.Errorf("seed render welcome: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var adminID, categoryID, articleID, tagID string
	if err := tx.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, SeedAdminEmail, string(hash), "Admin", "admin", false).Scan(&adminID); err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if err := tx.QueryRow(`
		INSERT INTO categories (name, slug, description)
		VALUES ('General', 'general', 'Everything that does not fit elsewhere.')
		RETURNING id
	`).Scan(&categoryID); err != nil {
		return fmt.Errorf("seed insert category: %w", err)
	}

	if err := tx.QueryRow(`
		INSERT INTO articles (title, slug, excerpt, content, content_html, status,
		                      is_featured, author_id, category_id, published_at)
		VALUES ($1, $2, $3, $4, $5, 'published', TRUE, $6, $7, NOW())
		RETURNING id
	`, "Welcome to the blog", "welcome-to-the-blog", "A first article to get started.",
		welcomeMarkdown, html, adminID, categoryID).Scan(&articleID); err != nil {
		return fmt.Errorf("seed insert article: %w", err)
	}

	if err := tx.QueryRow(`INSERT INTO tags (name, slug) VALUES ('welcome', 'welcome') RETURNING id`).Scan(&tagID); err != nil {
		return fmt.Errorf("seed insert tag: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2)`, articleID, tagID); err != nil {
		return fmt.Errorf("seed link tag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", SeedAdminEmail,
		"password", "admin",
	)
	return nil
}
