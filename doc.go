// Package grakel is a graph kernel library for Go: it turns collections of
// labeled graphs into similarity (Gram) matrices for kernel methods such as
// SVMs, following the fit / transform lifecycle familiar from scikit-learn.
//
// # Installation
//
//	go get github.com/tsdalton/GraKeL
//
// # Quick Start
//
// A Weisfeiler-Lehman subtree kernel with a vertex histogram base:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/tsdalton/GraKeL/core/graph"
//	    "github.com/tsdalton/GraKeL/pipeline"
//	)
//
//	func main() {
//	    gk, err := pipeline.NewGraphKernel(pipeline.Spec{
//	        Normalize: true,
//	        Kernels: []pipeline.StageSpec{
//	            {Name: "weisfeiler_lehman", NIter: pipeline.Ptr(4)},
//	            {Name: "vertex_histogram"},
//	        },
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    train := []graph.Source{
//	        graph.Input{
//	            Edges:        []graph.Edge{{From: 0, To: 1}, {From: 1, To: 2}},
//	            VertexLabels: map[int]string{0: "C", 1: "O", 2: "C"},
//	        },
//	        graph.Input{
//	            Edges:        []graph.Edge{{From: 0, To: 1}},
//	            VertexLabels: map[int]string{0: "C", 1: "N"},
//	        },
//	    }
//	    k, err := gk.FitTransform(train)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(k.At(0, 1))
//	}
//
// # Packages
//
//   - core/graph: immutable graph representation and input conversion
//   - core/model: kernel lifecycle contracts and state
//   - core/parallel: worker pool used by the matrix engine
//   - kernel: generic estimator, pairwise matrix engine, normalization, composition
//   - kernels: vertex/edge histogram, Weisfeiler-Lehman, neighborhood hash,
//     shortest path, random walk and solver-backed kernels
//   - pipeline: GraphKernel pipelines built from a Spec or YAML document
//   - metrics: Gram matrix diagnostics (symmetry, PSD, alignment)
//   - pkg/errors, pkg/log, pkg/diagnostics: errors, logging and metrics
//
// # Performance
//
// Matrix entries are computed in parallel with n_jobs workers (-1 for all
// CPU cores). For train matrices only the upper triangle is evaluated.
package grakel
