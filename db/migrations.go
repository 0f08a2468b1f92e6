package db

import (
	"database/sql"
	"log"
)

const (
	// Local and cached remote actors
	sqlCreatePersonsTable = `CREATE TABLE IF NOT EXISTS persons (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		domain TEXT NOT NULL,
		actor_uri TEXT UNIQUE NOT NULL,
		display_name TEXT DEFAULT '',
		bio TEXT DEFAULT '',
		inbox_uri TEXT NOT NULL,
		shared_inbox_uri TEXT DEFAULT '',
		public_key_pem TEXT NOT NULL,
		private_key_pem TEXT DEFAULT '',
		avatar_url TEXT DEFAULT '',
		local INTEGER DEFAULT 0,
		admin INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(username, domain)
	)`

	sqlCreatePersonsIndices = `
		CREATE INDEX IF NOT EXISTS idx_persons_actor_uri ON persons(actor_uri);
		CREATE INDEX IF NOT EXISTS idx_persons_domain ON persons(domain);
	`

	sqlCreateCommunitiesTable = `CREATE TABLE IF NOT EXISTS communities (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		actor_uri TEXT UNIQUE NOT NULL,
		followers_uri TEXT DEFAULT '',
		inbox_uri TEXT NOT NULL,
		shared_inbox_uri TEXT DEFAULT '',
		public_key_pem TEXT NOT NULL,
		private_key_pem TEXT DEFAULT '',
		icon_url TEXT DEFAULT '',
		banner_url TEXT DEFAULT '',
		nsfw INTEGER DEFAULT 0,
		posting_restricted_to_mods INTEGER DEFAULT 0,
		visibility TEXT DEFAULT 'public',
		local INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		creator_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_refreshed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(name, domain)
	)`

	sqlCreateCommunitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_communities_actor_uri ON communities(actor_uri);
		CREATE INDEX IF NOT EXISTS idx_communities_name ON communities(name);
	`

	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts (
		id TEXT NOT NULL PRIMARY KEY,
		creator_id TEXT NOT NULL,
		community_id TEXT NOT NULL,
		object_uri TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		url TEXT DEFAULT '',
		body TEXT DEFAULT '',
		deleted INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		edited_at TIMESTAMP,
		FOREIGN KEY (community_id) REFERENCES communities(id)
	)`

	sqlCreatePostsIndices = `
		CREATE INDEX IF NOT EXISTS idx_posts_object_uri ON posts(object_uri);
		CREATE INDEX IF NOT EXISTS idx_posts_community_id ON posts(community_id);
		CREATE INDEX IF NOT EXISTS idx_posts_creator_id ON posts(creator_id);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	`

	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL PRIMARY KEY,
		creator_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		parent_uri TEXT DEFAULT '',
		object_uri TEXT UNIQUE NOT NULL,
		content TEXT NOT NULL,
		deleted INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		edited_at TIMESTAMP,
		FOREIGN KEY (post_id) REFERENCES posts(id)
	)`

	sqlCreateCommentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_comments_object_uri ON comments(object_uri);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_creator_id ON comments(creator_id);
	`

	sqlCreatePrivateMessagesTable = `CREATE TABLE IF NOT EXISTS private_messages (
		id TEXT NOT NULL PRIMARY KEY,
		creator_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		object_uri TEXT UNIQUE NOT NULL,
		content TEXT NOT NULL,
		deleted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreatePrivateMessagesIndices = `
		CREATE INDEX IF NOT EXISTS idx_private_messages_object_uri ON private_messages(object_uri);
		CREATE INDEX IF NOT EXISTS idx_private_messages_recipient_id ON private_messages(recipient_id);
	`

	sqlCreateCommunityFollowersTable = `CREATE TABLE IF NOT EXISTS community_followers (
		id TEXT NOT NULL PRIMARY KEY,
		community_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		pending INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(community_id, person_id),
		FOREIGN KEY (community_id) REFERENCES communities(id)
	)`

	sqlCreateCommunityFollowersIndices = `
		CREATE INDEX IF NOT EXISTS idx_community_followers_community_id ON community_followers(community_id);
		CREATE INDEX IF NOT EXISTS idx_community_followers_person_id ON community_followers(person_id);
		CREATE INDEX IF NOT EXISTS idx_community_followers_uri ON community_followers(uri);
	`

	sqlCreateCommunityModeratorsTable = `CREATE TABLE IF NOT EXISTS community_moderators (
		id TEXT NOT NULL PRIMARY KEY,
		community_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(community_id, person_id),
		FOREIGN KEY (community_id) REFERENCES communities(id)
	)`

	sqlCreateCommunityModeratorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_community_moderators_community_id ON community_moderators(community_id);
	`

	// Processed-activity ledger. The UNIQUE constraint on activity_uri is
	// what makes duplicate delivery handling safe under concurrency.
	sqlCreateReceivedActivitiesTable = `CREATE TABLE IF NOT EXISTS received_activities (
		activity_uri TEXT NOT NULL PRIMARY KEY,
		received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateModLogTable = `CREATE TABLE IF NOT EXISTS mod_log (
		id TEXT NOT NULL PRIMARY KEY,
		mod_person_id TEXT NOT NULL,
		target_uri TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT DEFAULT '',
		removed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateModLogIndices = `
		CREATE INDEX IF NOT EXISTS idx_mod_log_target_uri ON mod_log(target_uri);
		CREATE INDEX IF NOT EXISTS idx_mod_log_created_at ON mod_log(created_at DESC);
	`

	sqlCreateInstancesTable = `CREATE TABLE IF NOT EXISTS instances (
		id TEXT NOT NULL PRIMARY KEY,
		domain TEXT UNIQUE NOT NULL,
		shared_inbox_uri TEXT DEFAULT '',
		software TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateDeliveryQueueTable = `CREATE TABLE IF NOT EXISTS delivery_queue (
		id TEXT NOT NULL PRIMARY KEY,
		inbox_uri TEXT NOT NULL,
		activity_json TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateDeliveryQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_delivery_queue_next_retry ON delivery_queue(next_retry_at);
	`
)

func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(tx, sqlCreatePersonsTable, "persons"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateCommunitiesTable, "communities"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreatePostsTable, "posts"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateCommentsTable, "comments"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreatePrivateMessagesTable, "private_messages"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateCommunityFollowersTable, "community_followers"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateCommunityModeratorsTable, "community_moderators"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateReceivedActivitiesTable, "received_activities"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateModLogTable, "mod_log"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateInstancesTable, "instances"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateDeliveryQueueTable, "delivery_queue"); err != nil {
			return err
		}

		if _, err := tx.Exec(sqlCreatePersonsIndices); err != nil {
			log.Printf("Warning: Failed to create persons indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateCommunitiesIndices); err != nil {
			log.Printf("Warning: Failed to create communities indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreatePostsIndices); err != nil {
			log.Printf("Warning: Failed to create posts indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateCommentsIndices); err != nil {
			log.Printf("Warning: Failed to create comments indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreatePrivateMessagesIndices); err != nil {
			log.Printf("Warning: Failed to create private_messages indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateCommunityFollowersIndices); err != nil {
			log.Printf("Warning: Failed to create community_followers indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateCommunityModeratorsIndices); err != nil {
			log.Printf("Warning: Failed to create community_moderators indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateModLogIndices); err != nil {
			log.Printf("Warning: Failed to create mod_log indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateDeliveryQueueIndices); err != nil {
			log.Printf("Warning: Failed to create delivery_queue indices: %v", err)
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Printf("Error creating table %s: %v", tableName, err)
		return err
	}
	log.Printf("Table %s created or already exists", tableName)
	return nil
}
