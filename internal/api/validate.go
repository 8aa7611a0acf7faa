package api

import (
	"fmt"
	"net/url"

	"parcelroute/internal/model"
)

const maxPackages = 5000

func validateRunRequest(req *model.RunRequest) error {
	if req.Algorithm != "" && !model.ValidAlgorithm(req.Algorithm) {
		return fmt.Errorf("invalid algorithm: %s (allowed: anneal,genetic,both)", req.Algorithm)
	}
	if n := len(req.Problem.Packages); n > maxPackages {
		return fmt.Errorf("too many packages: %d (max %d)", n, maxPackages)
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("callbackUrl must be an absolute http(s) URL")
		}
	}
	if req.CallbackSecret != "" && req.CallbackURL == "" {
		return fmt.Errorf("callbackSecret requires callbackUrl")
	}
	p := req.Params
	if p == nil {
		return nil
	}
	if p.InitialTemperature < 0 || p.StoppingTemperature < 0 {
		return fmt.Errorf("temperatures must be >= 0")
	}
	if p.CoolingRate != 0 && (p.CoolingRate <= 0 || p.CoolingRate >= 1) {
		return fmt.Errorf("coolingRate must be in (0,1)")
	}
	if p.IterationsPerTemperature < 0 || p.SwapAttempts < 0 || p.PopulationSize < 0 ||
		p.Generations < 0 || p.Elite < 0 || p.ParentPool < 0 {
		return fmt.Errorf("counts must be >= 0")
	}
	if p.MutationRate != nil && (*p.MutationRate < 0 || *p.MutationRate > 1) {
		return fmt.Errorf("mutationRate must be in [0,1]")
	}
	return nil
}
