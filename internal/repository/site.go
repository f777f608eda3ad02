package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

const siteColumns = `id, title, location, summary, tags, history, architecture, conservation,
	modern_relevance, old_structure_desc, new_structure_desc, thumb, glb, old_site_photo,
	new_site_photo, created_at, updated_at`

// siteRow mirrors one row of the sites table. Tags are stored as a JSONB array.
type siteRow struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Location         string    `db:"location"`
	Summary          string    `db:"summary"`
	Tags             []byte    `db:"tags"`
	History          string    `db:"history"`
	Architecture     string    `db:"architecture"`
	Conservation     string    `db:"conservation"`
	ModernRelevance  string    `db:"modern_relevance"`
	OldStructureDesc string    `db:"old_structure_desc"`
	NewStructureDesc string    `db:"new_structure_desc"`
	Thumb            string    `db:"thumb"`
	GLB              string    `db:"glb"`
	OldSitePhoto     string    `db:"old_site_photo"`
	NewSitePhoto     string    `db:"new_site_photo"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r *siteRow) toModel() (*model.Site, error) {
	site := &model.Site{
		ID:               r.ID,
		Title:            r.Title,
		Location:         r.Location,
		Summary:          r.Summary,
		Tags:             []string{},
		History:          r.History,
		Architecture:     r.Architecture,
		Conservation:     r.Conservation,
		ModernRelevance:  r.ModernRelevance,
		OldStructureDesc: r.OldStructureDesc,
		NewStructureDesc: r.NewStructureDesc,
		Thumb:            r.Thumb,
		GLB:              r.GLB,
		OldSitePhoto:     r.OldSitePhoto,
		NewSitePhoto:     r.NewSitePhoto,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if len(r.Tags) > 0 {
		if err := json.Unmarshal(r.Tags, &site.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of site %s: %w", r.ID, err)
		}
		if site.Tags == nil {
			site.Tags = []string{}
		}
	}
	return site, nil
}

// SiteRepository stores sites in Postgres.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository constructs a repository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Create inserts a new site. ID and timestamps are assigned by the caller.
func (r *SiteRepository) Create(ctx context.Context, site *model.Site) error {
	tags, err := encodeTags(site.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sites (`+siteColumns+`)
		VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, site.ID, site.Title, site.Location, site.Summary, tags, site.History, site.Architecture,
		site.Conservation, site.ModernRelevance, site.OldStructureDesc, site.NewStructureDesc,
		site.Thumb, site.GLB, site.OldSitePhoto, site.NewSitePhoto, site.CreatedAt, site.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

// Get returns a site by id.
func (r *SiteRepository) Get(ctx context.Context, id string) (*model.Site, error) {
	var row siteRow
	err := r.db.GetContext(ctx, &row, `SELECT `+siteColumns+` FROM sites WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("select site: %w", err)
	}
	return row.toModel()
}

// List returns one page of matching sites ordered by creation time, newest
// first.
func (r *SiteRepository) List(ctx context.Context, filter model.SiteFilter) ([]model.Site, error) {
	if filter.Skip < 0 {
		// Postgres rejects a negative OFFSET; treat it as past the end.
		return []model.Site{}, nil
	}
	where, args := whereClause(filter)
	args = append(args, filter.Limit, filter.Skip)
	query := fmt.Sprintf(`SELECT %s FROM sites%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		siteColumns, where, len(args)-1, len(args))

	var rows []siteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select sites: %w", err)
	}
	sites := make([]model.Site, 0, len(rows))
	for i := range rows {
		site, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sites = append(sites, *site)
	}
	return sites, nil
}

// Count returns the number of sites matching the filter, ignoring paging.
func (r *SiteRepository) Count(ctx context.Context, filter model.SiteFilter) (int, error) {
	where, args := whereClause(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sites`+where, args...); err != nil {
		return 0, fmt.Errorf("count sites: %w", err)
	}
	return total, nil
}

// Update overwrites every mutable column of the site.
func (r *SiteRepository) Update(ctx context.Context, site *model.Site) error {
	tags, err := encodeTags(site.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE sites
		SET title=$1, location=$2, summary=$3, tags=$4::jsonb, history=$5, architecture=$6,
			conservation=$7, modern_relevance=$8, old_structure_desc=$9, new_structure_desc=$10,
			thumb=$11, glb=$12, old_site_photo=$13, new_site_photo=$14, updated_at=$15
		WHERE id=$16
	`, site.Title, site.Location, site.Summary, tags, site.History, site.Architecture,
		site.Conservation, site.ModernRelevance, site.OldStructureDesc, site.NewStructureDesc,
		site.Thumb, site.GLB, site.OldSitePhoto, site.NewSitePhoto, site.UpdatedAt, site.ID)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return expectOne(res, site.ID)
}

// Delete removes a site.
func (r *SiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return expectOne(res, id)
}

// whereClause builds the filter predicate. Placeholders are numbered from $1.
func whereClause(filter model.SiteFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Tag != "" {
		tag, _ := json.Marshal([]string{filter.Tag})
		args = append(args, string(tag))
		conds = append(conds, fmt.Sprintf("tags @> $%d::jsonb", len(args)))
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		conds = append(conds, fmt.Sprintf("search @@ websearch_to_tsquery('simple', $%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("site %s: %w", id, &domain.NotFoundError{Message: "Site not found"})
}
