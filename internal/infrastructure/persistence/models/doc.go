// Package models contains the GORM persistence models. An invoice is stored as
// one JSON document next to the columns the queues and uniqueness rules need,
// so the domain aggregate stays free of ORM tags.
package models
