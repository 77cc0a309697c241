// Package ui implements an interactive terminal view of a fill run using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ProgressView] : A spinner following the pipeline phases as the engine reports them
//  2. [ResultView] : A styled summary of the run and a scrollable list of the selected tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the FillEngine, so the pipeline never blocks on rendering.
//
// Quitting while a run is in flight cancels its context.
package ui
