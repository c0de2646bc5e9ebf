package cache

func availabilityKey(sessionID string) string {
	return "cache:availability:" + sessionID
}

func handoffKey(sessionID string) string {
	return "temp_booking:" + sessionID
}

func checkoutLockKey(sessionID string) string {
	return "lock:checkout:" + sessionID
}

func changeChannel(key string) string {
	return "changes:" + key
}
