// Package repository persists benchmark runs of the traversal engine.
package repository

import "time"

// BenchmarkRun represents one recorded traversal benchmark run.
type BenchmarkRun struct {
	ID                int64         `gorm:"column:id;primaryKey;autoIncrement"`
	Shape             string        `gorm:"column:shape;type:varchar(32);index"`
	NodeCount         int           `gorm:"column:node_count"`
	Workers           int           `gorm:"column:workers"`
	WorkUnitMax       int           `gorm:"column:work_unit_max"`
	Iterations        int           `gorm:"column:iterations"`
	Elapsed           time.Duration `gorm:"column:elapsed_ns"`
	ElementsTraversed int64         `gorm:"column:elements_traversed"`
	ElementsStyled    int64         `gorm:"column:elements_styled"`
	StylesShared      int64         `gorm:"column:styles_shared"`
	CreateTime        time.Time     `gorm:"column:create_time;autoCreateTime"`
}

// TableName returns the table name for BenchmarkRun.
func (BenchmarkRun) TableName() string {
	return "benchmark_run"
}
