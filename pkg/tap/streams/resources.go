package streams

import "github.com/dext/tap-intercom/pkg/tap/base"

// Flat workspace resources: help center content, workspace membership,
// tags, and audience segments.
func init() {
	register(base.Definition{
		Name:           "collections",
		Path:           "help_center/collections",
		RecordsPath:    "data",
		PrimaryKeys:    []string{"id"},
		ReplicationKey: "updated_at",
		Schema: schemaOf("collections",
			str("id"),
			str("workspace_id"),
			str("name"),
			str("url"),
			integer("order"),
			integer("created_at"),
			integer("updated_at"),
			str("description"),
			str("icon"),
			str("parent_id"),
			integer("help_center_id"),
		),
	})

	register(base.Definition{
		Name:        "events",
		Path:        "events",
		RecordsPath: "events",
		PrimaryKeys: []string{"id"},
		Schema: schemaOf("events",
			str("type"),
			arrayOfString("events"),
			object("pages", str("next")),
			str("email"),
			str("intercom_user_id"),
			str("user_id"),
		),
	})

	register(base.Definition{
		Name:        "admins",
		Path:        "admins",
		RecordsPath: "admins",
		PrimaryKeys: []string{"id"},
		Schema: schemaOf("admins",
			str("type"),
			str("id"),
			str("name"),
			str("email"),
			str("job_title"),
			boolean("away_mode_enabled"),
			boolean("away_mode_reassign"),
			boolean("has_inbox_seat"),
			arrayOfInteger("team_ids"),
			str("avatar"),
			object("team_priority_level",
				arrayOfInteger("primary_team_ids"),
				arrayOfInteger("secondary_team_ids"),
			),
		),
	})

	register(base.Definition{
		Name:           "articles",
		Path:           "articles",
		RecordsPath:    "data",
		PrimaryKeys:    []string{"id"},
		ReplicationKey: "updated_at",
		Schema: schemaOf("articles",
			str("id"),
			str("type"),
			str("workspace_id"),
			integer("parent_id"),
			str("parent_type"),
			arrayOfString("parent_ids"),
			str("title"),
			str("description"),
			str("body"),
			integer("author_id"),
			str("state"),
			integer("created_at"),
			integer("updated_at"),
			str("url"),
		),
	})

	register(base.Definition{
		Name:        "tags",
		Path:        "tags",
		RecordsPath: "data",
		PrimaryKeys: []string{"id"},
		Schema: schemaOf("tags",
			str("type"),
			str("id"),
			str("name"),
			integer("applied_at"),
			object("applied_by", str("type"), str("id")),
		),
	})

	register(base.Definition{
		Name:        "teams",
		Path:        "teams",
		RecordsPath: "teams",
		PrimaryKeys: []string{"id"},
		Schema: schemaOf("teams",
			str("type"),
			str("id"),
			str("name"),
			arrayOfInteger("admin_ids"),
			object("admin_priority_level",
				arrayOfInteger("primary_admin_ids"),
				arrayOfInteger("secondary_admin_ids"),
			),
		),
	})

	register(base.Definition{
		Name:        "segments",
		Path:        "segments",
		RecordsPath: "segments",
		PrimaryKeys: []string{"id"},
		Schema: schemaOf("segments",
			str("type"),
			str("id"),
			str("name"),
			str("created_at"),
			str("updated_at"),
			str("person_type"),
			integer("count"),
		),
	})
}
