// Command vltrack builds the tracking datasets, samplers and loaders described
// by a configuration file and inspects, scans or plots them.
//
// Usage:
//
//	vltrack inspect --config configs/tracking.yaml --kinds tracking,eval_tracking
//	vltrack scan --config configs/tracking.yaml --kinds tracking --epoch 3 --metrics-out output/loader.prom
//	vltrack plot --config configs/tracking.yaml --kind eval_tracking --out plots
package main

func main() {
	Execute()
}
