package search

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipehub/pkg/models"
)

const (
	hookName      = "recipehub:search_reading"
	afterHookName = "recipehub:search_reading_after"
	pendingKey    = "recipehub:search_reading_ids"
)

// Text columns that feed search_reading.
var textColumns = map[string]bool{
	"title":        true,
	"genre":        true,
	"ingredients":  true,
	"instructions": true,
}

// RegisterHook makes every gorm create and update of a models.Recipe
// recompute search_reading.
//
// Create and Save set the column on the row being written. Partial updates
// (Updates, Update) that touch a text column record the target ids first and
// rewrite search_reading from the stored row once the update has run, inside
// the same transaction. Updates that touch no text column, such as counter
// bumps, leave search_reading alone.
func RegisterHook(db *gorm.DB, ix *Indexer) error {
	create := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}
		ctx := stmtContext(tx)
		switch d := tx.Statement.Dest.(type) {
		case *models.Recipe:
			ix.Apply(ctx, d)
		case []models.Recipe:
			for i := range d {
				ix.Apply(ctx, &d[i])
			}
		case *[]models.Recipe:
			for i := range *d {
				ix.Apply(ctx, &(*d)[i])
			}
		case []*models.Recipe:
			for _, r := range d {
				if r != nil {
					ix.Apply(ctx, r)
				}
			}
		}
	}

	before := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil || !isRecipe(tx.Statement) {
			return
		}
		stmt := tx.Statement

		// Save(&r): the destination is the row itself.
		if r, ok := stmt.Dest.(*models.Recipe); ok && sameTarget(stmt.Dest, stmt.Model) {
			ix.Apply(stmtContext(tx), r)
			return
		}
		if !touchesText(stmt) {
			return
		}

		ids, err := targetIDs(tx)
		if err != nil {
			_ = tx.AddError(fmt.Errorf("search reading targets: %w", err))
			return
		}
		stmt.Settings.Store(pendingKey, ids)
	}

	after := func(tx *gorm.DB) {
		if tx.Statement == nil {
			return
		}
		v, ok := tx.Statement.Settings.LoadAndDelete(pendingKey)
		if !ok || tx.Error != nil {
			return
		}
		ids, _ := v.([]int64)
		if err := reindex(tx, ix, ids); err != nil {
			_ = tx.AddError(fmt.Errorf("search reading reindex: %w", err))
		}
	}

	if err := db.Callback().Create().Before("gorm:create").Register(hookName, create); err != nil {
		return fmt.Errorf("register create hook: %w", err)
	}
	if err := db.Callback().Update().Before("gorm:update").Register(hookName, before); err != nil {
		return fmt.Errorf("register update hook: %w", err)
	}
	if err := db.Callback().Update().After("gorm:update").Register(afterHookName, after); err != nil {
		return fmt.Errorf("register update hook: %w", err)
	}
	return nil
}

func stmtContext(tx *gorm.DB) context.Context {
	if ctx := tx.Statement.Context; ctx != nil {
		return ctx
	}
	return context.Background()
}

func isRecipe(stmt *gorm.Statement) bool {
	if stmt.Schema != nil {
		return stmt.Schema.Table == models.Recipe{}.TableName()
	}
	switch stmt.Model.(type) {
	case *models.Recipe, models.Recipe:
		return true
	}
	return false
}

func sameTarget(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	return va.Kind() == reflect.Ptr && vb.Kind() == reflect.Ptr && va.Pointer() == vb.Pointer()
}

// touchesText reports whether the update writes any text column. Map keys
// may be column names or Go field names, as gorm accepts both. Struct
// destinations follow gorm's rule of skipping zero values unless selected.
func touchesText(stmt *gorm.Statement) bool {
	isText := func(name string) bool {
		if stmt.Schema != nil {
			if f := stmt.Schema.LookUpField(name); f != nil {
				return textColumns[f.DBName]
			}
		}
		return textColumns[name]
	}

	switch d := stmt.Dest.(type) {
	case map[string]any:
		for k := range d {
			if isText(k) {
				return true
			}
		}
	case models.Recipe:
		return structTouchesText(stmt, &d, isText)
	case *models.Recipe:
		if d != nil {
			return structTouchesText(stmt, d, isText)
		}
	}
	return false
}

func structTouchesText(stmt *gorm.Statement, r *models.Recipe, isText func(string) bool) bool {
	for _, s := range stmt.Selects {
		if s == "*" || isText(s) {
			return true
		}
	}
	return r.Title != "" || r.Genre != "" || r.Ingredients != "" || r.Instructions != ""
}

// targetIDs lists the recipes the pending update will write: the model's
// primary key when set, narrowed by the statement's WHERE conditions.
func targetIDs(tx *gorm.DB) ([]int64, error) {
	stmt := tx.Statement
	q := tx.Session(&gorm.Session{NewDB: true}).Unscoped().Model(&models.Recipe{})

	if m, ok := stmt.Model.(*models.Recipe); ok && m != nil && m.ID != 0 {
		q = q.Where("id = ?", m.ID)
	}
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if w, ok := c.Expression.(clause.Where); ok && len(w.Exprs) > 0 {
			q = q.Clauses(clause.Where{Exprs: w.Exprs})
		}
	}

	var ids []int64
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// reindex recomputes search_reading for ids from their stored text.
func reindex(tx *gorm.DB, ix *Indexer, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := stmtContext(tx)
	db := tx.Session(&gorm.Session{NewDB: true}).Unscoped()

	var rows []models.Recipe
	if err := db.Select("id", "title", "genre", "ingredients", "instructions").
		Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		v := ix.Reading(ctx, FieldsOf(&rows[i]))
		if err := db.Model(&models.Recipe{}).Where("id = ?", rows[i].ID).
			UpdateColumn("search_reading", v).Error; err != nil {
			return err
		}
	}
	return nil
}
