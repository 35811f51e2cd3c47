// Package game runs a blind omok session: turn order, the per-turn
// countdown, AI dispatch, the move record and the events collaborators
// render. Stones are never exposed while a game is live.
package game
