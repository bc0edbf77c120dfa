package streams

import "github.com/dext/tap-intercom/pkg/tap/base"

func init() {
	register(base.Definition{
		Name:         "contacts_list",
		Path:         "contacts",
		RecordsPath:  "data",
		PrimaryKeys:  []string{"id"},
		ChildContext: map[string]string{"contact_id": "id"},
		Schema: schemaOf("contacts_list",
			str("type"),
			str("id"),
			str("external_id"),
			str("workspace_id"),
			str("role"),
			str("email"),
			str("email_domain"),
			str("phone"),
			str("formatted_phone"),
			str("name"),
			integer("owner_id"),
			boolean("has_hard_bounced"),
			boolean("marked_email_as_spam"),
			boolean("unsubscribed_from_emails"),
			integer("created_at"),
			integer("updated_at"),
			str("signed_up_at"),
			str("last_seen_at"),
			str("last_replied_at"),
			str("last_contacted_at"),
			str("last_email_opened_at"),
			str("last_email_clicked_at"),
			str("language_override"),
			str("browser"),
			str("browser_version"),
			str("browser_language"),
			str("os"),
			str("android_app_name"),
			str("android_app_version"),
			str("android_device"),
			str("android_os_version"),
			str("android_sdk_version"),
			str("android_last_seen_at"),
			str("ios_app_name"),
			str("ios_app_version"),
			str("ios_device"),
			str("ios_os_version"),
			str("ios_sdk_version"),
			str("ios_last_seen_at"),
			str("custom_attributes"),
			str("avatar"),
			object("tags",
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("notes",
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("companies",
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("location",
				str("type"),
				str("country"),
				str("region"),
				str("city"),
			),
			object("social_profiles",
				str("data"),
			),
		),
	})

	register(base.Definition{
		Name:           "contacts",
		Path:           "contacts/{contact_id}",
		PrimaryKeys:    []string{"id"},
		ReplicationKey: "updated_at",
		Parent:         "contacts_list",
		Schema: schemaOf("contacts",
			str("type"),
			str("id"),
			str("workspace_id"),
			str("external_id"),
			str("role"),
			str("email"),
			str("phone"),
			str("name"),
			str("avatar"),
			str("owner_id"),
			object("social_profiles", str("type"), str("data")),
			boolean("has_hard_bounced"),
			boolean("marked_email_as_spam"),
			boolean("unsubscribed_from_emails"),
			integer("created_at"),
			integer("updated_at"),
			integer("signed_up_at"),
			str("last_seen_at"),
			str("last_replied_at"),
			str("last_contacted_at"),
			str("last_email_opened_at"),
			str("last_email_clicked_at"),
			str("language_override"),
			str("browser"),
			str("browser_version"),
			str("browser_language"),
			str("os"),
			object("location",
				str("type"),
				str("country"),
				str("region"),
				str("city"),
				str("country_code"),
				str("continent_code"),
			),
			str("android_app_name"),
			str("android_app_version"),
			str("android_device"),
			str("android_os_version"),
			str("android_sdk_version"),
			str("android_last_seen_at"),
			str("ios_app_name"),
			str("ios_app_version"),
			str("ios_device"),
			str("ios_os_version"),
			str("ios_sdk_version"),
			str("ios_last_seen_at"),
			object("custom_attributes"),
			object("tags",
				str("type"),
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("notes",
				str("type"),
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("companies",
				str("type"),
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("opted_out_subscription_types",
				str("type"),
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			object("opted_in_subscription_types",
				str("type"),
				str("data"),
				str("url"),
				integer("total_count"),
				boolean("has_more"),
			),
			str("utm_campaign"),
			str("utm_content"),
			str("utm_medium"),
			str("utm_source"),
			str("utm_term"),
			str("referrer"),
		),
	})
}
