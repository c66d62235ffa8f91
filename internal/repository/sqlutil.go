package repository

import (
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// inClause returns "?,?,?" for n ids along with the matching args.
func inClause(ids []uint64) (string, []interface{}) {
    ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    return ph, args
}

func nullString(ns sql.NullString) *string {
    if !ns.Valid {
        return nil
    }
    s := ns.String
    return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
    if !nf.Valid {
        return nil
    }
    f := nf.Float64
    return &f
}
