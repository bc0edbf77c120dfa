package streams

import "github.com/dext/tap-intercom/pkg/tap/base"

func init() {
	register(base.Definition{
		Name:           "conversations",
		Path:           "conversations/search",
		Search:         true,
		RecordsPath:    "conversations",
		PrimaryKeys:    []string{"id"},
		ReplicationKey: "updated_at",
		ChildContext:   map[string]string{"conversation_id": "id"},
		Schema: schemaOf("conversations",
			str("type"),
			str("id"),
			str("ticket"),
			str("title"),
			integer("created_at"),
			integer("updated_at"),
			integer("waiting_since"),
			integer("snoozed_until"),
			boolean("open"),
			str("state"),
			boolean("read"),
			str("priority"),
			integer("admin_assignee_id"),
			integer("team_assignee_id"),
			object("tags",
				str("type"),
				arrayOfObject("tags",
					str("type"),
					str("id"),
					str("name"),
					integer("applied_at"),
					object("applied_by", str("type"), str("id")),
				),
			),
			object("conversation_rating",
				integer("rating"),
				str("remark"),
				integer("created_at"),
				object("contact", str("type"), str("id"), str("external_id")),
				object("teammate", str("type"), str("id")),
			),
			object("source",
				str("type"),
				str("id"),
				str("delivered_as"),
				str("subject"),
				str("body"),
				object("author", str("type"), str("id"), str("name"), str("email")),
				arrayOfObject("attachments",
					str("type"),
					str("name"),
					str("url"),
					str("content_type"),
					integer("filesize"),
					str("width"),
					str("height"),
				),
				str("url"),
				boolean("redacted"),
			),
			object("contacts",
				str("type"),
				arrayOfObject("contacts", str("type"), str("id"), str("external_id")),
			),
			object("teammates",
				str("type"),
				arrayOfObject("teammates", str("type"), str("id")),
			),
			object("first_contact_reply",
				integer("created_at"),
				str("type"),
				str("url"),
			),
			object("sla_applied",
				str("type"),
				str("sla_name"),
				str("sla_status"),
			),
			object("statistics",
				str("type"),
				integer("time_to_assignment"),
				integer("time_to_admin_reply"),
				integer("time_to_first_close"),
				integer("time_to_last_close"),
				integer("median_time_to_reply"),
				integer("first_contact_reply_at"),
				integer("first_assignment_at"),
				integer("first_admin_reply_at"),
				integer("first_close_at"),
				integer("last_assignment_at"),
				integer("last_assignment_admin_reply_at"),
				integer("last_contact_reply_at"),
				integer("last_admin_reply_at"),
				integer("last_close_at"),
				integer("last_closed_by_id"),
				integer("count_reopens"),
				integer("count_assignments"),
				integer("count_conversation_parts"),
			),
			object("linked_objects",
				str("type"),
				integer("total_count"),
				boolean("has_more"),
				arrayOfObject("data", str("type"), str("id"), str("category")),
			),
		),
	})

	register(base.Definition{
		Name:           "conversation_parts",
		Path:           "conversations/{conversation_id}",
		RecordsPath:    "conversation_parts.conversation_parts",
		PrimaryKeys:    []string{"id"},
		ReplicationKey: "updated_at",
		Parent:         "conversations",
		Schema: schemaOf("conversation_parts",
			str("type"),
			str("id"),
			str("part_type"),
			str("body"),
			integer("created_at"),
			integer("updated_at"),
			integer("notified_at"),
			object("assigned_to", str("type"), str("id")),
			object("author", str("type"), str("id"), str("name"), str("email")),
			arrayOfObject("attachments",
				str("type"),
				str("name"),
				str("url"),
				str("content_type"),
				integer("filesize"),
				str("width"),
				str("height"),
			),
			str("external_id"),
			boolean("redacted"),
		),
	})
}
