package services

import "time"

func (s *MatchService) SetClock(now func() time.Time) { s.now = now }
func (s *ChatService) SetClock(now func() time.Time) { s.now = now }
func (s *ActivityService) SetClock(now func() time.Time) { s.now = now }
func (s *UserService) SetHashCost(cost int) { s.hashCost = cost }
