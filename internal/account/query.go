package account

import (
	"fmt"
	"strings"
)

// Column is a users column the service is allowed to write.
type Column string

const (
	ColumnUsername     Column = "username"
	ColumnEmail        Column = "email"
	ColumnPasswordHash Column = "password_hash"
	ColumnRole         Column = "role"
	ColumnBanned       Column = "banned"
)

var mutableColumns = map[Column]bool{
	ColumnUsername:     true,
	ColumnEmail:        true,
	ColumnPasswordHash: true,
	ColumnRole:         true,
	ColumnBanned:       true,
}

// Assignment sets one column to a bound value in an UPDATE.
type Assignment struct {
	Column Column
	Value  any
}

var sortColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
}

const listColumns = "id, username, email, role, banned, created_at"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s anywhere, with LIKE wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// orderBy resolves a sort directive against the allow-list. Unknown fields
// drop the directive and leave the default id order.
func orderBy(s *Sort) string {
	if s == nil {
		return "id ASC"
	}
	col, ok := sortColumns[s.Field]
	if !ok {
		return "id ASC"
	}
	dir := "ASC"
	if strings.EqualFold(s.Direction, "desc") {
		dir = "DESC"
	}
	return col + " " + dir + ", id ASC"
}

func buildListQuery(f Filter, s *Sort) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if f.Role != nil {
		clauses = append(clauses, fmt.Sprintf("role = $%d", argn))
		args = append(args, string(*f.Role))
		argn++
	}

	if f.Username != "" {
		clauses = append(clauses, fmt.Sprintf("username ILIKE $%d", argn))
		args = append(args, containsPattern(f.Username))
		argn++
	}

	if f.Email != "" {
		clauses = append(clauses, fmt.Sprintf("email ILIKE $%d", argn))
		args = append(args, containsPattern(f.Email))
		argn++
	}

	if f.Banned != nil {
		clauses = append(clauses, fmt.Sprintf("banned = $%d", argn))
		args = append(args, *f.Banned)
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY %s",
		listColumns, strings.Join(clauses, " AND "), orderBy(s))
	return query, args
}

// buildUpdateQuery returns ok=false when no assignment survives the
// allow-list. A column assigned twice keeps its first value.
func buildUpdateQuery(id int64, fields []Assignment) (query string, args []any, ok bool) {
	sets := []string{}
	seen := make(map[Column]bool, len(fields))
	argn := 1

	for _, a := range fields {
		if !mutableColumns[a.Column] || seen[a.Column] {
			continue
		}
		seen[a.Column] = true
		sets = append(sets, fmt.Sprintf("%s = $%d", a.Column, argn))
		args = append(args, a.Value)
		argn++
	}

	if len(sets) == 0 {
		return "", nil, false
	}

	args = append(args, id)
	query = fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), argn)
	return query, args, true
}
