package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// StoreViolation describes a database-level rejection in terms of the
// inventory and order model rather than raw driver fields.
type StoreViolation struct {
	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Code       Code   `json:"mapped_code,omitempty"`
}

// Diagnosis is the log-facing summary of an error chain.
type Diagnosis struct {
	Message string          `json:"message"`
	Code    Code            `json:"code,omitempty"`
	Details any             `json:"details,omitempty"`
	Chain   []string        `json:"chain,omitempty"`
	Store   *StoreViolation `json:"store,omitempty"`
}

type constraintRule struct {
	rule string
	code Code
}

// constraintRules maps schema constraint names to the invariant they protect.
var constraintRules = map[string]constraintRule{
	"chk_inventory_quantity_non_negative":     {"on-hand quantity must stay non-negative", CodeNegativeStock},
	"chk_inventory_reserved_non_negative":     {"reserved quantity must stay non-negative", CodeInvalidRelease},
	"chk_inventory_reserved_within_quantity":  {"reserved quantity must not exceed on-hand", CodeInsufficientStock},
	"ux_inventory_records_org_literature":     {"one inventory record per organization and literature", CodeConflict},
	"chk_literature_price_non_negative":       {"literature price must be non-negative", CodeValidation},
	"chk_order_items_quantity_positive":       {"order item quantity must be positive", CodeValidation},
	"chk_order_items_unit_price_non_negative": {"order item price must be non-negative", CodeValidation},
	"ux_order_items_order_literature":         {"literature appears once per order", CodeConflict},
	"chk_orders_distinct_orgs":                {"buyer and supplier must differ", CodeValidation},
	"chk_orders_lock_holder":                  {"lock holder and lock time are set together", CodeStateConflict},
	"ux_orders_order_number":                  {"order numbers are unique", CodeConflict},
	"chk_organizations_not_own_parent":        {"an organization cannot be its own parent", CodeValidation},
	"chk_organizations_not_own_supplier":      {"an organization cannot supply itself", CodeValidation},
	"chk_transactions_direction_matches_type": {"transaction direction must match its type", CodeValidation},
	"chk_transactions_quantity_positive":      {"transaction quantity must be positive", CodeValidation},
	"chk_transactions_transfer_not_order":     {"a transaction belongs to a transfer or an order, not both", CodeValidation},
	"ux_transactions_reverses_id":             {"a transaction is reversed at most once", CodeConflict},
	"ux_users_email":                          {"user emails are unique", CodeConflict},
	"ux_outbox_dlq_event_id":                  {"an outbox event is dead-lettered once", CodeConflict},
}

// Diagnose walks err and extracts the typed error and any store violation.
func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}

	d := Diagnosis{Message: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Store = storeViolation(err)
	return d
}

// ConstraintRule returns the invariant a named constraint protects.
func ConstraintRule(name string) (string, Code, bool) {
	r, ok := constraintRules[name]
	return r.rule, r.code, ok
}

func storeViolation(err error) *StoreViolation {
	var v *StoreViolation

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		v = &StoreViolation{
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
		}
	case errors.As(err, &pqErr):
		v = &StoreViolation{
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
		}
	default:
		v = sqliteViolation(err)
	}
	if v == nil {
		return nil
	}

	if r, ok := constraintRules[v.Constraint]; ok {
		v.Rule = r.rule
		v.Code = r.code
	}
	return v
}

// sqliteViolation recognises the message forms the test database reports,
// e.g. "CHECK constraint failed: chk_inventory_quantity_non_negative" or
// "UNIQUE constraint failed: users.email".
func sqliteViolation(err error) *StoreViolation {
	msg := err.Error()
	for _, kind := range []struct{ prefix, state string }{
		{"CHECK constraint failed: ", "23514"},
		{"UNIQUE constraint failed: ", "23505"},
		{"FOREIGN KEY constraint failed", "23503"},
	} {
		idx := strings.Index(msg, kind.prefix)
		if idx < 0 {
			continue
		}
		v := &StoreViolation{SQLState: kind.state}
		rest := strings.TrimSpace(msg[idx+len(kind.prefix):])
		if kind.state == "23505" {
			if table, column, ok := strings.Cut(rest, "."); ok {
				v.Table = table
				v.Column = strings.Split(column, ",")[0]
			}
		} else if rest != "" {
			v.Constraint = strings.Fields(rest)[0]
		}
		return v
	}
	return nil
}
