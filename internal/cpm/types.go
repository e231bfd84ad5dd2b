package cpm

// Result holds the bound propagation outcome for a whole graph. The per-node
// values live on the graph's operations.
type Result struct {
	ASAPFinish   int    `json:"asap_finish"` // max(asap + duration)
	ALAPFinish   int    `json:"alap_finish"` // max(alap + duration)
	CriticalPath []int  `json:"critical_path"`
	TopoOrder    []int  `json:"topo_order"`
	Steps        []Step `json:"steps"`
}

// Step groups the operations that share an ASAP start time.
type Step struct {
	Index      int   `json:"index"`
	Time       int   `json:"time"`
	IDs        []int `json:"ids"`
	IsCritical bool  `json:"is_critical"` // true if any member has zero slack
}
