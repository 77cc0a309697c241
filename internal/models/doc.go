// Package models defines domain entities and persistence interfaces for plbop.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing Spotify data
//   - [Playlist] : Playlist metadata, including the owner used for de-duplication
//   - [Track] : Track metadata returned by the recommendations endpoint
//
// 2. Persistent Entities: Database-backed models
//   - [FillRun] : One fill run with its counters, status, and the tracks it wrote
//
// Persistent entities implement [Model]. [Repository] defines standard CRUD operations for database access.
package models
