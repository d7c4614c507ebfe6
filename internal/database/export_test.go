package database

import "time"

func SetClock(d *Database, now func() time.Time) {
	d.now = now
}
