package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/store"
	"github.com/lib/pq"
)

const dateLayout = "2006-01-02"

// PostgresStore implements store.Store directly on the backend's favourites tables.
// Favourites are soft-deleted through is_active.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore backed by the given *sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) ListFavourites(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	const query = `
		SELECT f.id_favorito, f.id_partido, f.id_usuario, f.is_active, f.created_at,
		       p.dia, p.enlace_fotmob,
		       hl.id_equipo, hl.nombre_equipo, COALESCE(hl.logo, ''),
		       aw.id_equipo, aw.nombre_equipo, COALESCE(aw.logo, ''),
		       l.id_liga, l.nombre_liga, l.pais,
		       e.id_estado, e.nombre_estado
		FROM tb_favorito f
		JOIN tb_partidos p ON p.id_partido = f.id_partido
		JOIN tb_equipos hl ON hl.id_equipo = p.id_equipo_local
		JOIN tb_equipos aw ON aw.id_equipo = p.id_equipo_visita
		LEFT JOIN tb_liga l ON l.id_liga = p.id_liga
		LEFT JOIN tb_estados e ON e.id_estado = p.id_estado
		WHERE f.id_usuario = $1 AND f.is_active = TRUE
		ORDER BY f.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, int64(userID))
	if err != nil {
		return nil, &store.FetchError{Op: "list", Err: fmt.Errorf("querying user favourites: %w", err)}
	}
	defer rows.Close()

	favourites := []*models.FavouriteRecord{}
	for rows.Next() {
		fav, err := scanFavourite(rows)
		if err != nil {
			return nil, &store.FetchError{Op: "list", Err: err}
		}
		favourites = append(favourites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.FetchError{Op: "list", Err: fmt.Errorf("iterating user favourites: %w", err)}
	}
	return favourites, nil
}

func (r *PostgresStore) AddFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) (*models.FavouriteRecord, error) {
	// Re-favouriting a soft-deleted match re-activates the existing row.
	const query = `
		INSERT INTO tb_favorito (id_usuario, id_partido, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (id_usuario, id_partido) DO UPDATE SET is_active = TRUE
		RETURNING id_favorito, id_partido, id_usuario, is_active, created_at`

	var fav models.FavouriteRecord
	err := r.db.QueryRowContext(ctx, query, int64(userID), int64(matchID), time.Now().UTC()).
		Scan(&fav.ID, &fav.MatchID, &fav.UserID, &fav.IsActive, &fav.CreatedAt)
	if err != nil {
		// Foreign-key violation (PG error code 23503): the match or user does not exist.
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("match %d for user %d: %w", matchID, userID, store.ErrNotFound)
		}
		return nil, &store.FetchError{Op: "add", Err: fmt.Errorf("upserting favourite: %w", err)}
	}
	return &fav, nil
}

func (r *PostgresStore) RemoveFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) error {
	const query = `
		UPDATE tb_favorito SET is_active = FALSE
		WHERE id_usuario = $1 AND id_partido = $2 AND is_active = TRUE`

	result, err := r.db.ExecContext(ctx, query, int64(userID), int64(matchID))
	if err != nil {
		return &store.FetchError{Op: "remove", Err: fmt.Errorf("deactivating favourite: %w", err)}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &store.FetchError{Op: "remove", Err: fmt.Errorf("checking rows affected: %w", err)}
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ping checks database connectivity. Intended for health check endpoints.
func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// scanFavourite scans one joined row into a FavouriteRecord with its match snapshot.
func scanFavourite(rows *sql.Rows) (*models.FavouriteRecord, error) {
	var (
		fav        models.FavouriteRecord
		match      models.MatchSnapshot
		day        time.Time
		link       sql.NullString
		leagueID   sql.NullInt64
		leagueName sql.NullString
		country    sql.NullString
		stateID    sql.NullInt64
		stateName  sql.NullString
	)

	err := rows.Scan(
		&fav.ID, &fav.MatchID, &fav.UserID, &fav.IsActive, &fav.CreatedAt,
		&day, &link,
		&match.HomeTeam.ID, &match.HomeTeam.Name, &match.HomeTeam.Logo,
		&match.AwayTeam.ID, &match.AwayTeam.Name, &match.AwayTeam.Logo,
		&leagueID, &leagueName, &country,
		&stateID, &stateName,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning favourite row: %w", err)
	}

	match.ID = fav.MatchID
	match.Date = day.Format(dateLayout)
	if link.Valid {
		match.Link = &link.String
	}
	if leagueID.Valid {
		match.League = &models.LeagueBrief{ID: leagueID.Int64, Name: leagueName.String, Country: country.String}
	}
	if stateID.Valid {
		match.State = &models.StateBrief{ID: stateID.Int64, Name: stateName.String}
	}
	fav.Match = &match

	return &fav, nil
}

// isForeignKeyViolation checks if a PostgreSQL error is a foreign key violation (23503).
func isForeignKeyViolation(err error) bool {
	var pge *pq.Error
	if errors.As(err, &pge) {
		return pge.Code == "23503"
	}
	return false
}
