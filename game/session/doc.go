// Package session provides session management for the Mars Rovers mission
// server.
//
// A session is one grid with its lost-position memory and the reports of the
// rovers deployed on it. The package implements:
//   - Thread-safe, case-insensitive session storage and retrieval
//   - Random 4-character session IDs
//   - Expiry of idle sessions from memory
//   - Pluggable persistence: one JSON file per session, or a SQLite table
//
// Usage:
//
//	persistence, err := session.NewSQLitePersistence("sessions.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	defer manager.Close()
//
//	sess, err := manager.Create("", config)
//	sess, err = manager.Get(sess.ID)
//
// Sessions that are not in memory are loaded from persistence on first
// access, so a restarted server picks up where it left off.
package session
