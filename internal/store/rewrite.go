package store

import (
	"context"
	"fmt"

	"github.com/avoskresensky/fieldsync/internal/dbx"
	"github.com/avoskresensky/fieldsync/internal/models"
)

// The rewrite helpers replace a temporary local identifier with the
// server-assigned one after a successful first create, including every
// foreign-key column that referenced the temporary id. They are meant to
// run inside one transaction so a crash can never leave a half-rewritten
// reference graph.

func RewriteID(ctx context.Context, tx dbx.DBTX, entity models.EntityType, oldID, newID string) error {
	stmts, ok := rewriteStatements[entity]
	if !ok {
		return fmt.Errorf("no id rewrite for entity %q", entity)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, newID, oldID); err != nil {
			return fmt.Errorf("rewriting %s id %s -> %s: %w", entity, oldID, newID, err)
		}
	}
	return nil
}

// Each statement takes (newID, oldID). The owning row comes first so a
// failed dependent update still rolls back with it.
var rewriteStatements = map[models.EntityType][]string{
	models.EntityCompany: {
		`UPDATE companies SET id = ? WHERE id = ?`,
		`UPDATE users SET company_id = ? WHERE company_id = ?`,
		`UPDATE clients SET company_id = ? WHERE company_id = ?`,
		`UPDATE task_types SET company_id = ? WHERE company_id = ?`,
		`UPDATE projects SET company_id = ? WHERE company_id = ?`,
	},
	models.EntityUser: {
		`UPDATE users SET id = ? WHERE id = ?`,
	},
	models.EntityClient: {
		`UPDATE clients SET id = ? WHERE id = ?`,
		`UPDATE subclients SET client_id = ? WHERE client_id = ?`,
		`UPDATE projects SET client_id = ? WHERE client_id = ?`,
	},
	models.EntitySubClient: {
		`UPDATE subclients SET id = ? WHERE id = ?`,
	},
	models.EntityTaskType: {
		`UPDATE task_types SET id = ? WHERE id = ?`,
		`UPDATE tasks SET task_type_id = ? WHERE task_type_id = ?`,
	},
	models.EntityProject: {
		`UPDATE projects SET id = ? WHERE id = ?`,
		`UPDATE tasks SET project_id = ? WHERE project_id = ?`,
		`UPDATE events SET project_id = ? WHERE project_id = ?`,
	},
	models.EntityTask: {
		`UPDATE tasks SET id = ? WHERE id = ?`,
		`UPDATE events SET task_id = ? WHERE task_id = ?`,
	},
	models.EntityCalendarEvent: {
		`UPDATE events SET id = ? WHERE id = ?`,
		`UPDATE tasks SET event_id = ? WHERE event_id = ?`,
	},
}
