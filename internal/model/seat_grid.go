package model

import "sort"

// RowLabel converts a zero-based row index into its spreadsheet-style label:
// 0 -> A, 25 -> Z, 26 -> AA.
func RowLabel(i int) string {
    if i < 0 {
        return ""
    }
    var res []byte
    for {
        res = append(res, byte('A'+i%26))
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
        res[j], res[k] = res[k], res[j]
    }
    return string(res)
}

// SeatGrid lays out rows x perRow available seats for a showtime, row by
// row.  IDs are left zero for the store to assign.
func SeatGrid(showtimeID uint64, rows, perRow int) []Seat {
    if rows <= 0 || perRow <= 0 {
        return nil
    }
    seats := make([]Seat, 0, rows*perRow)
    for r := 0; r < rows; r++ {
        label := RowLabel(r)
        for n := 1; n <= perRow; n++ {
            seats = append(seats, Seat{ShowtimeID: showtimeID, Row: label, Number: n})
        }
    }
    return seats
}

// SeatLess orders seats by row, then number.  Shorter labels sort first so
// Z comes before AA.
func SeatLess(a, b Seat) bool {
    if len(a.Row) != len(b.Row) {
        return len(a.Row) < len(b.Row)
    }
    if a.Row != b.Row {
        return a.Row < b.Row
    }
    return a.Number < b.Number
}

// SortSeats sorts seats in place using SeatLess.
func SortSeats(seats []Seat) {
    sort.Slice(seats, func(i, j int) bool { return SeatLess(seats[i], seats[j]) })
}
