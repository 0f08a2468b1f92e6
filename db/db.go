package db

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const (
	//Persons (local and cached remote actors)
	sqlInsertPerson = `INSERT INTO persons(id, username, domain, actor_uri, display_name, bio, inbox_uri, shared_inbox_uri,
                        public_key_pem, private_key_pem, avatar_url, local, admin, deleted, created_at, last_fetched_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlUpdatePerson = `UPDATE persons SET display_name = ?, bio = ?, inbox_uri = ?, shared_inbox_uri = ?,
                        public_key_pem = ?, avatar_url = ?, last_fetched_at = ? WHERE actor_uri = ?`
	sqlSelectPerson = `SELECT id, username, domain, actor_uri, display_name, bio, inbox_uri, shared_inbox_uri,
                        public_key_pem, private_key_pem, avatar_url, local, admin, deleted, created_at, last_fetched_at FROM persons`
	sqlSelectPersonByActorURI      = sqlSelectPerson + ` WHERE actor_uri = ?`
	sqlSelectPersonById            = sqlSelectPerson + ` WHERE id = ?`
	sqlSelectLocalPersonByUsername = sqlSelectPerson + ` WHERE username = ? AND local = 1`

	//Communities
	sqlInsertCommunity = `INSERT INTO communities(id, name, domain, title, description, actor_uri, followers_uri, inbox_uri,
                        shared_inbox_uri, public_key_pem, private_key_pem, icon_url, banner_url, nsfw, posting_restricted_to_mods,
                        visibility, local, deleted, removed, creator_id, created_at, last_refreshed_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectCommunity = `SELECT id, name, domain, title, description, actor_uri, followers_uri, inbox_uri, shared_inbox_uri,
                        public_key_pem, private_key_pem, icon_url, banner_url, nsfw, posting_restricted_to_mods,
                        visibility, local, deleted, removed, creator_id, created_at, last_refreshed_at FROM communities`
	sqlSelectCommunityByActorURI = sqlSelectCommunity + ` WHERE actor_uri = ?`
	sqlSelectCommunityById       = sqlSelectCommunity + ` WHERE id = ?`
	sqlSelectCommunityByName     = sqlSelectCommunity + ` WHERE name = ? AND local = 1`
	sqlUpdateCommunityDeleted    = `UPDATE communities SET deleted = ? WHERE id = ?`
	sqlUpdateCommunityRemoved    = `UPDATE communities SET removed = ? WHERE id = ?`

	//Posts
	sqlInsertPost = `INSERT INTO posts(id, creator_id, community_id, object_uri, title, url, body, deleted, removed, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`
	sqlSelectPost = `SELECT id, creator_id, community_id, object_uri, title, url, body, deleted, removed, created_at, edited_at
                        FROM posts`
	sqlSelectPostByURI            = sqlSelectPost + ` WHERE object_uri = ?`
	sqlSelectPostById             = sqlSelectPost + ` WHERE id = ?`
	sqlSelectPostsByCommunityId   = sqlSelectPost + ` WHERE community_id = ? AND deleted = 0 AND removed = 0 ORDER BY created_at DESC LIMIT ?`
	sqlUpdatePostDeleted          = `UPDATE posts SET deleted = ? WHERE id = ?`
	sqlUpdatePostRemoved          = `UPDATE posts SET removed = ? WHERE id = ?`
	sqlUpdatePostsRemovedByPerson = `UPDATE posts SET removed = 1 WHERE creator_id = ?`

	//Comments
	sqlInsertComment = `INSERT INTO comments(id, creator_id, post_id, parent_uri, object_uri, content, deleted, removed, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`
	sqlSelectComment = `SELECT id, creator_id, post_id, parent_uri, object_uri, content, deleted, removed, created_at, edited_at
                        FROM comments`
	sqlSelectCommentByURI            = sqlSelectComment + ` WHERE object_uri = ?`
	sqlSelectCommentById             = sqlSelectComment + ` WHERE id = ?`
	sqlUpdateCommentDeleted          = `UPDATE comments SET deleted = ? WHERE id = ?`
	sqlUpdateCommentRemoved          = `UPDATE comments SET removed = ? WHERE id = ?`
	sqlUpdateCommentsRemovedByPerson = `UPDATE comments SET removed = 1 WHERE creator_id = ?`

	//Private messages
	sqlInsertPrivateMessage = `INSERT INTO private_messages(id, creator_id, recipient_id, object_uri, content, deleted, created_at)
                        VALUES (?, ?, ?, ?, ?, 0, ?)`
	sqlSelectPrivateMessageByURI = `SELECT id, creator_id, recipient_id, object_uri, content, deleted, created_at
                        FROM private_messages WHERE object_uri = ?`
	sqlUpdatePrivateMessageDeleted = `UPDATE private_messages SET deleted = ? WHERE id = ?`

	//Community followers and moderators
	sqlInsertCommunityFollower = `INSERT INTO community_followers(id, community_id, person_id, uri, pending, created_at)
                        VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectCommunityFollower = `SELECT id, community_id, person_id, uri, pending, created_at FROM community_followers
                        WHERE community_id = ? AND person_id = ?`
	sqlSelectCommunityFollowerByURI = `SELECT id, community_id, person_id, uri, pending, created_at FROM community_followers
                        WHERE uri = ?`
	sqlSelectCommunityFollowers = `SELECT id, community_id, person_id, uri, pending, created_at FROM community_followers
                        WHERE community_id = ? AND pending = 0`
	sqlDeleteCommunityFollowerByURI = `DELETE FROM community_followers WHERE uri = ?`
	sqlAcceptCommunityFollowerByURI = `UPDATE community_followers SET pending = 0 WHERE uri = ?`
	sqlInsertCommunityModerator     = `INSERT INTO community_moderators(id, community_id, person_id, created_at) VALUES (?, ?, ?, ?)`
	sqlCountCommunityModerator      = `SELECT COUNT(*) FROM community_moderators WHERE community_id = ? AND person_id = ?`

	//Received activities (idempotency ledger)
	sqlInsertReceivedActivity = `INSERT INTO received_activities(activity_uri, received_at) VALUES (?, ?)`
	sqlCountReceivedActivity  = `SELECT COUNT(*) FROM received_activities WHERE activity_uri = ?`

	//Mod log
	sqlInsertModLogEntry        = `INSERT INTO mod_log(id, mod_person_id, target_uri, action, reason, removed, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectModLogByTargetURI  = `SELECT id, mod_person_id, target_uri, action, reason, removed, created_at FROM mod_log WHERE target_uri = ? ORDER BY created_at ASC`
	sqlCountModLogByTargetURI   = `SELECT COUNT(*) FROM mod_log WHERE target_uri = ?`

	//Instances
	sqlInsertInstance     = `INSERT INTO instances(id, domain, shared_inbox_uri, software, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlUpdateInstance     = `UPDATE instances SET shared_inbox_uri = ?, software = ?, updated_at = ? WHERE domain = ?`
	sqlSelectAllInstances = `SELECT id, domain, shared_inbox_uri, software, created_at, updated_at FROM instances`

	//Delivery queue
	sqlInsertDelivery         = `INSERT INTO delivery_queue(id, inbox_uri, activity_json, attempts, next_retry_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectPendingDelivery  = `SELECT id, inbox_uri, activity_json, attempts, next_retry_at, created_at FROM delivery_queue WHERE next_retry_at <= ? ORDER BY next_retry_at ASC LIMIT ?`
	sqlUpdateDeliveryAttempt  = `UPDATE delivery_queue SET attempts = ?, next_retry_at = ? WHERE id = ?`
	sqlDeleteDelivery         = `DELETE FROM delivery_queue WHERE id = ?`

	//Nodeinfo counts
	sqlCountLocalPersons = `SELECT COUNT(*) FROM persons WHERE local = 1 AND deleted = 0`
	sqlCountLocalPosts   = `SELECT COUNT(*) FROM posts WHERE deleted = 0 AND removed = 0`
	sqlCountCommunities  = `SELECT COUNT(*) FROM communities WHERE local = 1`
)

func GetDB() *DB {
	dbOnce.Do(func() {
		// Resolve database path (local first, then user config dir)
		dbPath := util.ResolveFilePath("database.db")
		log.Printf("Using database at: %s", dbPath)

		// Open database connection
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			panic(err)
		}

		// Configure connection pool for concurrent access
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)

		// Try to enable WAL2 mode, fall back to WAL if not supported
		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode=WAL2").Scan(&journalMode)
		if err != nil || journalMode == "delete" {
			// WAL2 not supported, try regular WAL
			err = db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
			if err != nil {
				log.Printf("Warning: Failed to enable WAL mode: %v", err)
			} else {
				log.Printf("Database journal mode: %s (WAL2 not supported, using WAL)", journalMode)
			}
		} else {
			log.Printf("Database journal mode: %s", journalMode)
		}

		// Optimize PRAGMAs for the concurrent inbox workload
		db.Exec("PRAGMA synchronous = NORMAL")
		db.Exec("PRAGMA cache_size = -64000")
		db.Exec("PRAGMA temp_store = MEMORY")
		db.Exec("PRAGMA busy_timeout = 5000")
		db.Exec("PRAGMA foreign_keys = ON")
		db.Exec("PRAGMA auto_vacuum = INCREMENTAL")

		log.Printf("Database initialized with connection pooling (max 25 connections)")

		dbInstance = &DB{db: db}

		// Run initial schema setup
		err2 := dbInstance.RunMigrations()
		if err2 != nil {
			panic(err2)
		}
	})

	return dbInstance
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// IsUniqueConstraintError reports whether err is a sqlite UNIQUE
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseTimestamp handles the timestamp formats sqlite hands back depending
// on how the value was written.
func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// Person operations

func (db *DB) CreatePerson(p *domain.Person) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPerson,
			p.Id.String(), p.Username, p.Domain, p.ActorURI, p.DisplayName, p.Bio,
			p.InboxURI, p.SharedInboxURI, p.PublicKeyPem, p.PrivateKeyPem, p.AvatarURL,
			boolToInt(p.Local), boolToInt(p.Admin), boolToInt(p.Deleted),
			p.CreatedAt.Format(time.RFC3339), p.LastFetchedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) UpdatePerson(p *domain.Person) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePerson,
			p.DisplayName, p.Bio, p.InboxURI, p.SharedInboxURI, p.PublicKeyPem,
			p.AvatarURL, p.LastFetchedAt.Format(time.RFC3339), p.ActorURI)
		return err
	})
}

func (db *DB) ReadPersonByActorURI(actorURI string) (error, *domain.Person) {
	return db.scanPerson(db.db.QueryRow(sqlSelectPersonByActorURI, actorURI))
}

func (db *DB) ReadPersonById(id uuid.UUID) (error, *domain.Person) {
	return db.scanPerson(db.db.QueryRow(sqlSelectPersonById, id.String()))
}

func (db *DB) ReadLocalPersonByUsername(username string) (error, *domain.Person) {
	return db.scanPerson(db.db.QueryRow(sqlSelectLocalPersonByUsername, username))
}

func (db *DB) scanPerson(row *sql.Row) (error, *domain.Person) {
	var p domain.Person
	var idStr string
	var local, admin, deleted int
	var createdAt, lastFetched string
	err := row.Scan(&idStr, &p.Username, &p.Domain, &p.ActorURI, &p.DisplayName, &p.Bio,
		&p.InboxURI, &p.SharedInboxURI, &p.PublicKeyPem, &p.PrivateKeyPem, &p.AvatarURL,
		&local, &admin, &deleted, &createdAt, &lastFetched)
	if err != nil {
		return err, nil
	}
	p.Id, err = uuid.Parse(idStr)
	if err != nil {
		return err, nil
	}
	p.Local = local == 1
	p.Admin = admin == 1
	p.Deleted = deleted == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := parseTimestamp(lastFetched); err == nil {
		p.LastFetchedAt = t
	}
	return nil, &p
}

// DeletePersonAccount marks a person deleted and strips profile data. When
// removeData is set, all of the person's posts and comments are removed in
// the same transaction, together with the mod-log entry if one is given.
func (db *DB) DeletePersonAccount(personId uuid.UUID, removeData bool, entry *domain.ModLogEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE persons SET deleted = 1, display_name = '', bio = '', avatar_url = '' WHERE id = ?`,
			personId.String())
		if err != nil {
			return err
		}
		if removeData {
			if _, err := tx.Exec(sqlUpdatePostsRemovedByPerson, personId.String()); err != nil {
				return err
			}
			if _, err := tx.Exec(sqlUpdateCommentsRemovedByPerson, personId.String()); err != nil {
				return err
			}
		}
		return insertModLogEntry(tx, entry)
	})
}

// Community operations

func (db *DB) CreateCommunity(c *domain.Community) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertCommunity,
			c.Id.String(), c.Name, c.Domain, c.Title, c.Description, c.ActorURI, c.FollowersURI,
			c.InboxURI, c.SharedInboxURI, c.PublicKeyPem, c.PrivateKeyPem, c.IconURL, c.BannerURL,
			boolToInt(c.Nsfw), boolToInt(c.PostingRestrictedToMods), string(c.Visibility),
			boolToInt(c.Local), boolToInt(c.Deleted), boolToInt(c.Removed),
			c.CreatorId.String(), c.CreatedAt.Format(time.RFC3339), c.LastRefreshedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadCommunityByActorURI(actorURI string) (error, *domain.Community) {
	return db.scanCommunity(db.db.QueryRow(sqlSelectCommunityByActorURI, actorURI))
}

func (db *DB) ReadCommunityById(id uuid.UUID) (error, *domain.Community) {
	return db.scanCommunity(db.db.QueryRow(sqlSelectCommunityById, id.String()))
}

func (db *DB) ReadCommunityByName(name string) (error, *domain.Community) {
	return db.scanCommunity(db.db.QueryRow(sqlSelectCommunityByName, name))
}

func (db *DB) scanCommunity(row *sql.Row) (error, *domain.Community) {
	var c domain.Community
	var idStr, creatorStr, visibility string
	var nsfw, restricted, local, deleted, removed int
	var createdAt, refreshedAt string
	err := row.Scan(&idStr, &c.Name, &c.Domain, &c.Title, &c.Description, &c.ActorURI,
		&c.FollowersURI, &c.InboxURI, &c.SharedInboxURI, &c.PublicKeyPem, &c.PrivateKeyPem,
		&c.IconURL, &c.BannerURL, &nsfw, &restricted, &visibility, &local, &deleted, &removed,
		&creatorStr, &createdAt, &refreshedAt)
	if err != nil {
		return err, nil
	}
	c.Id, err = uuid.Parse(idStr)
	if err != nil {
		return err, nil
	}
	c.CreatorId, _ = uuid.Parse(creatorStr)
	c.Visibility = domain.CommunityVisibility(visibility)
	c.Nsfw = nsfw == 1
	c.PostingRestrictedToMods = restricted == 1
	c.Local = local == 1
	c.Deleted = deleted == 1
	c.Removed = removed == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := parseTimestamp(refreshedAt); err == nil {
		c.LastRefreshedAt = t
	}
	return nil, &c
}

// UpdateCommunityPartial applies a partial update form: only non-nil
// fields overwrite stored values.
func (db *DB) UpdateCommunityPartial(id uuid.UUID, form *domain.CommunityUpdateForm) error {
	sets := []string{}
	args := []any{}
	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if form.Title != nil {
		appendSet("title", *form.Title)
	}
	if form.Description != nil {
		appendSet("description", *form.Description)
	}
	if form.IconURL != nil {
		appendSet("icon_url", *form.IconURL)
	}
	if form.BannerURL != nil {
		appendSet("banner_url", *form.BannerURL)
	}
	if form.Nsfw != nil {
		appendSet("nsfw", boolToInt(*form.Nsfw))
	}
	if form.PostingRestrictedToMods != nil {
		appendSet("posting_restricted_to_mods", boolToInt(*form.PostingRestrictedToMods))
	}
	if form.PublicKeyPem != nil {
		appendSet("public_key_pem", *form.PublicKeyPem)
	}
	if form.InboxURI != nil {
		appendSet("inbox_uri", *form.InboxURI)
	}
	if form.SharedInboxURI != nil {
		appendSet("shared_inbox_uri", *form.SharedInboxURI)
	}
	if form.FollowersURI != nil {
		appendSet("followers_uri", *form.FollowersURI)
	}
	if form.LastRefreshedAt != nil {
		appendSet("last_refreshed_at", form.LastRefreshedAt.Format(time.RFC3339))
	}
	if len(sets) == 0 {
		return nil
	}
	query := "UPDATE communities SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id.String())
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(query, args...)
		return err
	})
}

func (db *DB) UpdateCommunityDeleted(id uuid.UUID, deleted bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateCommunityDeleted, boolToInt(deleted), id.String())
		return err
	})
}

// UpdateCommunityRemoved flips the removed flag and, when entry is
// non-nil, appends the mod-log record in the same transaction so a
// failure rolls back both rows.
func (db *DB) UpdateCommunityRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlUpdateCommunityRemoved, boolToInt(removed), id.String()); err != nil {
			return err
		}
		return insertModLogEntry(tx, entry)
	})
}

// Post operations

func (db *DB) CreatePost(p *domain.Post) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost,
			p.Id.String(), p.CreatorId.String(), p.CommunityId.String(), p.ObjectURI,
			p.Title, p.URL, p.Body, p.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadPostByURI(objectURI string) (error, *domain.Post) {
	return db.scanPost(db.db.QueryRow(sqlSelectPostByURI, objectURI))
}

func (db *DB) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	return db.scanPost(db.db.QueryRow(sqlSelectPostById, id.String()))
}

func (db *DB) scanPost(row *sql.Row) (error, *domain.Post) {
	var p domain.Post
	var idStr, creatorStr, communityStr string
	var deleted, removed int
	var createdAt string
	var editedAt sql.NullString
	err := row.Scan(&idStr, &creatorStr, &communityStr, &p.ObjectURI, &p.Title, &p.URL,
		&p.Body, &deleted, &removed, &createdAt, &editedAt)
	if err != nil {
		return err, nil
	}
	p.Id, _ = uuid.Parse(idStr)
	p.CreatorId, _ = uuid.Parse(creatorStr)
	p.CommunityId, _ = uuid.Parse(communityStr)
	p.Deleted = deleted == 1
	p.Removed = removed == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		p.CreatedAt = t
	}
	if editedAt.Valid {
		if t, err := parseTimestamp(editedAt.String); err == nil {
			p.EditedAt = &t
		}
	}
	return nil, &p
}

func (db *DB) ReadPostsByCommunityId(communityId uuid.UUID, limit int) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectPostsByCommunityId, communityId.String(), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var idStr, creatorStr, communityStr string
		var deleted, removed int
		var createdAt string
		var editedAt sql.NullString
		if err := rows.Scan(&idStr, &creatorStr, &communityStr, &p.ObjectURI, &p.Title,
			&p.URL, &p.Body, &deleted, &removed, &createdAt, &editedAt); err != nil {
			return err, &posts
		}
		p.Id, _ = uuid.Parse(idStr)
		p.CreatorId, _ = uuid.Parse(creatorStr)
		p.CommunityId, _ = uuid.Parse(communityStr)
		p.Deleted = deleted == 1
		p.Removed = removed == 1
		if t, err := parseTimestamp(createdAt); err == nil {
			p.CreatedAt = t
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return err, &posts
	}
	return nil, &posts
}

func (db *DB) UpdatePostDeleted(id uuid.UUID, deleted bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePostDeleted, boolToInt(deleted), id.String())
		return err
	})
}

func (db *DB) UpdatePostRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlUpdatePostRemoved, boolToInt(removed), id.String()); err != nil {
			return err
		}
		return insertModLogEntry(tx, entry)
	})
}

// Comment operations

func (db *DB) CreateComment(c *domain.Comment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertComment,
			c.Id.String(), c.CreatorId.String(), c.PostId.String(), c.ParentURI,
			c.ObjectURI, c.Content, c.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadCommentByURI(objectURI string) (error, *domain.Comment) {
	return db.scanComment(db.db.QueryRow(sqlSelectCommentByURI, objectURI))
}

func (db *DB) ReadCommentById(id uuid.UUID) (error, *domain.Comment) {
	return db.scanComment(db.db.QueryRow(sqlSelectCommentById, id.String()))
}

func (db *DB) scanComment(row *sql.Row) (error, *domain.Comment) {
	var c domain.Comment
	var idStr, creatorStr, postStr string
	var deleted, removed int
	var createdAt string
	var editedAt sql.NullString
	err := row.Scan(&idStr, &creatorStr,
		&postStr, &c.ParentURI, &c.ObjectURI, &c.Content, &deleted, &removed, &createdAt, &editedAt)
	if err != nil {
		return err, nil
	}
	c.Id, _ = uuid.Parse(idStr)
	c.CreatorId, _ = uuid.Parse(creatorStr)
	c.PostId, _ = uuid.Parse(postStr)
	c.Deleted = deleted == 1
	c.Removed = removed == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		c.CreatedAt = t
	}
	if editedAt.Valid {
		if t, err := parseTimestamp(editedAt.String); err == nil {
			c.EditedAt = &t
		}
	}
	return nil, &c
}

func (db *DB) UpdateCommentDeleted(id uuid.UUID, deleted bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateCommentDeleted, boolToInt(deleted), id.String())
		return err
	})
}

func (db *DB) UpdateCommentRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlUpdateCommentRemoved, boolToInt(removed), id.String()); err != nil {
			return err
		}
		return insertModLogEntry(tx, entry)
	})
}

// Private message operations

func (db *DB) CreatePrivateMessage(pm *domain.PrivateMessage) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPrivateMessage,
			pm.Id.String(), pm.CreatorId.String(), pm.RecipientId.String(), pm.ObjectURI,
			pm.Content, pm.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadPrivateMessageByURI(objectURI string) (error, *domain.PrivateMessage) {
	var pm domain.PrivateMessage
	var idStr, creatorStr, recipientStr string
	var deleted int
	var createdAt string
	err := db.db.QueryRow(sqlSelectPrivateMessageByURI, objectURI).Scan(&idStr, &creatorStr,
		&recipientStr, &pm.ObjectURI, &pm.Content, &deleted, &createdAt)
	if err != nil {
		return err, nil
	}
	pm.Id, _ = uuid.Parse(idStr)
	pm.CreatorId, _ = uuid.Parse(creatorStr)
	pm.RecipientId, _ = uuid.Parse(recipientStr)
	pm.Deleted = deleted == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		pm.CreatedAt = t
	}
	return nil, &pm
}

func (db *DB) UpdatePrivateMessageDeleted(id uuid.UUID, deleted bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePrivateMessageDeleted, boolToInt(deleted), id.String())
		return err
	})
}

// Community follower and moderator operations

func (db *DB) CreateCommunityFollower(f *domain.CommunityFollower) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertCommunityFollower,
			f.Id.String(), f.CommunityId.String(), f.PersonId.String(), f.URI,
			boolToInt(f.Pending), f.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadCommunityFollower(communityId, personId uuid.UUID) (error, *domain.CommunityFollower) {
	return db.scanCommunityFollower(db.db.QueryRow(sqlSelectCommunityFollower, communityId.String(), personId.String()))
}

func (db *DB) ReadCommunityFollowerByURI(uri string) (error, *domain.CommunityFollower) {
	return db.scanCommunityFollower(db.db.QueryRow(sqlSelectCommunityFollowerByURI, uri))
}

func (db *DB) scanCommunityFollower(row *sql.Row) (error, *domain.CommunityFollower) {
	var f domain.CommunityFollower
	var idStr, communityStr, personStr string
	var pending int
	var createdAt string
	err := row.Scan(&idStr, &communityStr, &personStr, &f.URI, &pending, &createdAt)
	if err != nil {
		return err, nil
	}
	f.Id, _ = uuid.Parse(idStr)
	f.CommunityId, _ = uuid.Parse(communityStr)
	f.PersonId, _ = uuid.Parse(personStr)
	f.Pending = pending == 1
	if t, err := parseTimestamp(createdAt); err == nil {
		f.CreatedAt = t
	}
	return nil, &f
}

func (db *DB) ReadCommunityFollowers(communityId uuid.UUID) (error, *[]domain.CommunityFollower) {
	rows, err := db.db.Query(sqlSelectCommunityFollowers, communityId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var followers []domain.CommunityFollower
	for rows.Next() {
		var f domain.CommunityFollower
		var idStr, communityStr, personStr string
		var pending int
		var createdAt string
		if err := rows.Scan(&idStr, &communityStr, &personStr, &f.URI, &pending, &createdAt); err != nil {
			return err, &followers
		}
		f.Id, _ = uuid.Parse(idStr)
		f.CommunityId, _ = uuid.Parse(communityStr)
		f.PersonId, _ = uuid.Parse(personStr)
		f.Pending = pending == 1
		if t, err := parseTimestamp(createdAt); err == nil {
			f.CreatedAt = t
		}
		followers = append(followers, f)
	}
	if err = rows.Err(); err != nil {
		return err, &followers
	}
	return nil, &followers
}

func (db *DB) AcceptCommunityFollowerByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlAcceptCommunityFollowerByURI, uri)
		return err
	})
}

func (db *DB) DeleteCommunityFollowerByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteCommunityFollowerByURI, uri)
		return err
	})
}

func (db *DB) CreateCommunityModerator(m *domain.CommunityModerator) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertCommunityModerator,
			m.Id.String(), m.CommunityId.String(), m.PersonId.String(), m.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) IsCommunityModerator(communityId, personId uuid.UUID) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlCountCommunityModerator, communityId.String(), personId.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Received activity ledger

// InsertReceivedActivity records a processed activity URI. The UNIQUE
// constraint on activity_uri makes this the atomic insert-if-absent that
// guards against duplicate application; a constraint violation means the
// activity was already handled.
func (db *DB) InsertReceivedActivity(activityURI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertReceivedActivity, activityURI, time.Now().Format(time.RFC3339))
		return err
	})
}

func (db *DB) HasReceivedActivity(activityURI string) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlCountReceivedActivity, activityURI).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Mod log

func insertModLogEntry(tx *sql.Tx, entry *domain.ModLogEntry) error {
	if entry == nil {
		return nil
	}
	_, err := tx.Exec(sqlInsertModLogEntry,
		entry.Id.String(), entry.ModPersonId.String(), entry.TargetURI, entry.Action,
		entry.Reason, boolToInt(entry.Removed), entry.CreatedAt.Format(time.RFC3339))
	return err
}

func (db *DB) ReadModLogByTargetURI(targetURI string) (error, *[]domain.ModLogEntry) {
	rows, err := db.db.Query(sqlSelectModLogByTargetURI, targetURI)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var entries []domain.ModLogEntry
	for rows.Next() {
		var e domain.ModLogEntry
		var idStr, modStr string
		var removed int
		var createdAt string
		if err := rows.Scan(&idStr, &modStr, &e.TargetURI, &e.Action, &e.Reason, &removed, &createdAt); err != nil {
			return err, &entries
		}
		e.Id, _ = uuid.Parse(idStr)
		e.ModPersonId, _ = uuid.Parse(modStr)
		e.Removed = removed == 1
		if t, err := parseTimestamp(createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return err, &entries
	}
	return nil, &entries
}

func (db *DB) CountModLogByTargetURI(targetURI string) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountModLogByTargetURI, targetURI).Scan(&count)
	return count, err
}

// Instance operations

func (db *DB) UpsertInstance(inst *domain.Instance) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateInstance, inst.SharedInboxURI, inst.Software,
			time.Now().Format(time.RFC3339), inst.Domain)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			_, err = tx.Exec(sqlInsertInstance, inst.Id.String(), inst.Domain,
				inst.SharedInboxURI, inst.Software,
				time.Now().Format(time.RFC3339), time.Now().Format(time.RFC3339))
		}
		return err
	})
}

func (db *DB) ReadAllInstances() (error, *[]domain.Instance) {
	rows, err := db.db.Query(sqlSelectAllInstances)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		var inst domain.Instance
		var idStr, createdAt, updatedAt string
		if err := rows.Scan(&idStr, &inst.Domain, &inst.SharedInboxURI, &inst.Software, &createdAt, &updatedAt); err != nil {
			return err, &instances
		}
		inst.Id, _ = uuid.Parse(idStr)
		if t, err := parseTimestamp(createdAt); err == nil {
			inst.CreatedAt = t
		}
		if t, err := parseTimestamp(updatedAt); err == nil {
			inst.UpdatedAt = t
		}
		instances = append(instances, inst)
	}
	if err = rows.Err(); err != nil {
		return err, &instances
	}
	return nil, &instances
}

// Delivery queue operations

func (db *DB) EnqueueDelivery(item *domain.DeliveryQueueItem) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertDelivery,
			item.Id.String(), item.InboxURI, item.ActivityJSON, item.Attempts,
			item.NextRetryAt.Format(time.RFC3339), item.CreatedAt.Format(time.RFC3339))
		return err
	})
}

func (db *DB) ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryQueueItem) {
	rows, err := db.db.Query(sqlSelectPendingDelivery, time.Now().Format(time.RFC3339), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var items []domain.DeliveryQueueItem
	for rows.Next() {
		var item domain.DeliveryQueueItem
		var idStr, nextRetry, createdAt string
		if err := rows.Scan(&idStr, &item.InboxURI, &item.ActivityJSON, &item.Attempts, &nextRetry, &createdAt); err != nil {
			return err, &items
		}
		item.Id, _ = uuid.Parse(idStr)
		if t, err := parseTimestamp(nextRetry); err == nil {
			item.NextRetryAt = t
		}
		if t, err := parseTimestamp(createdAt); err == nil {
			item.CreatedAt = t
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return err, &items
	}
	return nil, &items
}

func (db *DB) UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateDeliveryAttempt, attempts, nextRetry.Format(time.RFC3339), id.String())
		return err
	})
}

func (db *DB) DeleteDelivery(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteDelivery, id.String())
		return err
	})
}

// Nodeinfo counts

func (db *DB) CountLocalPersons() (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountLocalPersons).Scan(&count)
	return count, err
}

func (db *DB) CountLocalPosts() (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountLocalPosts).Scan(&count)
	return count, err
}

func (db *DB) CountCommunities() (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountCommunities).Scan(&count)
	return count, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
