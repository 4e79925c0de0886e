package domain

// Tenant represents one registered company in the tenant registry.
// Records are created by the external admin tool and are read-only here.
type Tenant struct {
	ClientID     string `json:"client_id"`
	PasswordHash string `json:"password_hash"`
	Industry     string `json:"industry"`
	CompanyName  string `json:"company_name"`
}

// Upload carries one incoming raw dataset, already decoded from the
// streaming transport. Rows are kept verbatim; the service never
// interprets cell contents before the transformation engine does.
type Upload struct {
	Filename string
	Header   []string
	Rows     [][]string
}

// Table is a materialized query result.
type Table struct {
	Columns []string
	Rows    [][]string
}

// EngineJob describes one invocation of the external transformation
// engine: read the raw snapshot, materialize the industry-scoped models
// into the target store.
type EngineJob struct {
	ClientID  string
	Industry  string
	RawPath   string
	StorePath string
}
