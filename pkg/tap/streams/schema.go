package streams

import "github.com/dext/tap-intercom/pkg/models"

// Schema construction helpers. Stream files declare record shapes with
// these instead of spelling out models.Field literals.

func schemaOf(name string, fields ...models.Field) *models.Schema {
	return &models.Schema{Name: name, Fields: fields}
}

func str(name string) models.Field {
	return models.Field{Name: name, Type: "string"}
}

func integer(name string) models.Field {
	return models.Field{Name: name, Type: "integer"}
}

func boolean(name string) models.Field {
	return models.Field{Name: name, Type: "boolean"}
}

func object(name string, fields ...models.Field) models.Field {
	return models.Field{Name: name, Type: "object", Fields: fields}
}

func array(name string, item models.Field) models.Field {
	return models.Field{Name: name, Type: "array", Items: &item}
}

func arrayOfObject(name string, fields ...models.Field) models.Field {
	return array(name, models.Field{Type: "object", Fields: fields})
}

func arrayOfString(name string) models.Field {
	return array(name, models.Field{Type: "string"})
}

func arrayOfInteger(name string) models.Field {
	return array(name, models.Field{Type: "integer"})
}
