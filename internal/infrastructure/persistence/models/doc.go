// Package models contains the GORM persistence models and their conversions
// to and from the domain types. Models never leak out of the persistence
// layer; repositories convert at the boundary.
package models
