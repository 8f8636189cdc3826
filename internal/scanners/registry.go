package scanners

type Scanner struct {
	Name   string
	Binary string
	Image  string
	Tags   []string
}

// Nuclei is the only scanner driven by the service.
var Nuclei = Scanner{
	Name:   "nuclei",
	Binary: "nuclei",
	Image:  "projectdiscovery/nuclei:latest",
	Tags:   []string{"misconfig", "exposure", "tech", "ssl", "cve"},
}
