// Package resumption persists the state applications need to resume after an
// ignition cycle.
//
// # Overview
//
// A Store keeps one row per (app id, device id) pair in the application table
// plus a single-row resumption table holding the last ignition-off time. It
// runs on any dbms backend; the caller opens the dbms.Database and keeps it
// open for the lifetime of the Store.
//
// # Lifecycle
//
// Saved applications age by one cycle on every OnSuspend. When a Store is
// built with a positive lifes value, applications whose ign_off_count reaches
// it are dropped in the same transaction.
//
//	db := dbms.New(backend, "resumption")
//	db.SetPath("/var/lib/sdl/")
//	if err := db.Open(); err != nil { ... }
//	defer db.Close()
//
//	store, err := resumption.New(db, 3)
//	store.Save(&resumption.Application{AppID: "nav", DeviceID: "usb-1"})
//	store.OnSuspend()
//
// # Concurrency
//
// Store methods are safe for concurrent use. Writes that touch more than one
// statement run in a transaction; a failed step rolls it back.
package resumption
