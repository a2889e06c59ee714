package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.GET("/counts", s.countsHandler.GetCounts)
	crossings := s.router.Group("/crossings")
	{
		crossings.GET("/recent", s.countsHandler.GetRecentCrossings)
		crossings.GET("/totals", s.countsHandler.GetCrossingTotals)
	}

	lanes := s.router.Group("/lanes")
	{
		lanes.GET("", s.countsHandler.GetLanes)
		lanes.GET("/stats", s.countsHandler.GetLaneStats)
	}

	s.router.GET("/stream.mjpeg", s.streamHandler.StreamMJPEG)
	s.router.GET("/frame.jpg", s.streamHandler.LatestFrame)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}

	worker := s.router.Group("/worker")
	{
		worker.GET("/info", s.workerHandler.GetInfo)
		worker.POST("/shutdown", s.workerHandler.Shutdown)
	}
}
