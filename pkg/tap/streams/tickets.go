package streams

import "github.com/dext/tap-intercom/pkg/tap/base"

func init() {
	register(base.Definition{
		Name:         "tickets_list",
		Path:         "tickets/search",
		Search:       true,
		RecordsPath:  "tickets",
		PrimaryKeys:  []string{"id"},
		ChildContext: map[string]string{"ticket_id": "id"},
		Schema: schemaOf("tickets_list",
			str("type"),
			str("id"),
			str("ticket_id"),
			str("category"),
			object("ticket_attributes", str("name"), str("question")),
			str("ticket_state"),
			object("ticket_type",
				str("type"),
				str("id"),
				str("category"),
				str("name"),
				str("description"),
				str("icon"),
				str("workspace_id"),
				str("ticket_type_attributes"),
				boolean("archived"),
				integer("created_at"),
				integer("updated_at"),
			),
			object("contacts",
				str("type"),
				arrayOfString("contacts"),
			),
			str("admin_assignee_id"),
			str("team_assignee_id"),
			integer("created_at"),
			integer("updated_at"),
			boolean("open"),
			integer("snoozed_until"),
			object("linked_objects",
				str("type"),
				integer("total_count"),
				boolean("has_more"),
				arrayOfString("data"),
			),
			object("ticket_parts",
				str("type"),
				arrayOfString("ticket_parts"),
				integer("total_count"),
			),
			boolean("is_shared"),
		),
	})

	register(base.Definition{
		Name:           "tickets",
		Path:           "tickets/{ticket_id}",
		PrimaryKeys:    []string{"ticket_id"},
		ReplicationKey: "updated_at",
		Parent:         "tickets_list",
		Schema: schemaOf("tickets",
			str("type"),
			str("id"),
			str("ticket_id"),
			str("category"),
			object("ticket_attributes", str("name"), str("question")),
			str("ticket_state"),
			str("ticket_state_internal_label"),
			str("ticket_state_external_label"),
			object("ticket_type",
				str("type"),
				str("id"),
				str("category"),
				str("name"),
				str("description"),
				str("icon"),
				str("workspace_id"),
				str("ticket_type_attributes"),
				boolean("archived"),
				integer("created_at"),
				integer("updated_at"),
			),
			object("contacts",
				str("type"),
				arrayOfString("contacts"),
			),
			str("admin_assignee_id"),
			str("team_assignee_id"),
			integer("created_at"),
			integer("updated_at"),
			boolean("open"),
			integer("snoozed_until"),
			object("linked_objects",
				str("type"),
				integer("total_count"),
				boolean("has_more"),
				arrayOfString("data"),
			),
			object("ticket_parts",
				str("type"),
				arrayOfString("ticket_parts"),
				integer("total_count"),
			),
			boolean("is_shared"),
		),
	})
}
