// Package messaging bridges the sync engine to NATS: push-triggered force syncs
// in, location and route mirrors out.
package messaging

const subjectPrefix = "vehicle."

func SyncSubject(vehicleID string) string     { return subjectPrefix + vehicleID + ".sync" }
func LocationSubject(vehicleID string) string { return subjectPrefix + vehicleID + ".location" }
func RouteSubject(vehicleID string) string    { return subjectPrefix + vehicleID + ".route" }
