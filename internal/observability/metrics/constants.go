// Package metrics provides custom Prometheus metrics for the dossier service.
package metrics

// Outcome label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Datastore operation label values.
const (
	OpSave   = "save"
	OpGet    = "get"
	OpList   = "list"
	OpDelete = "delete"
	OpQuery  = "query"
	OpScan   = "scan"
)

// Cross-link direction label values.
const (
	DirectionAdd    = "add"
	DirectionRemove = "remove"
)

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
