// Package main hosts the heatclip CLI entrypoint and command graph.
//
// The Cobra command tree drives the dataset pipeline: collecting heatmap peak
// clips from episode pages, transcribing them, classifying transcripts, and
// reporting progress and accuracy. It also exposes the inspection and
// labeling commands used while curating the dataset.
//
// Configuration resolution, the batch lock, logging setup and collaborator
// wiring live here so that internal packages stay free of CLI concerns.
package main
