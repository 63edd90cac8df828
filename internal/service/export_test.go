package service

// SetCodeGenerator replaces the short code source.
func (s *ShortLinkService) SetCodeGenerator(fn func() (string, error)) {
	s.generate = fn
}
