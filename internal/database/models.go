package database

import "time"

// Thread is one knowledge base entry: a question thread identified by its
// post ID, labelled with the tag it was filed under.
type Thread struct {
	ID        int64     `db:"id"`
	Tag       string    `db:"tag"`
	PostID    int64     `db:"post_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}
