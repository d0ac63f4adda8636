package audit

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// PostgresSink writes configuration-change audit rows in batches.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) WriteBatch(events []*domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (id, event_type, endpoint_url, node_id, version, at) VALUES ")

	args := make([]any, 0, len(events)*6)
	for i, e := range events {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))

		args = append(args,
			e.ID,
			string(e.Type),
			e.EndpointURL,
			e.NodeID,
			e.Version,
			e.At,
		)
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

var _ ports.AuditSink = (*PostgresSink)(nil)
