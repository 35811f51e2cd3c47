// Package bot implements the AI opponent.
//
// ChooseMove runs four stages in order:
//   - take an immediate win if one exists and is not a forbidden double-three
//   - occupy the cell where the opponent would win next, if allowed
//   - run a fixed-depth minimax with alpha-beta pruning over every empty cell,
//     scoring leaves with the evaluator
//   - fall back to the first empty, non-forbidden cell
//
// Cells are always scanned row-major (A1, A2, ... H7) and ties keep the first
// cell found, so the engine is fully deterministic.
package bot
