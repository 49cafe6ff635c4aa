// Package plugins hosts the dataset module subpackages. It contains no
// production code itself; this file exists for the architecture guard test
// that lives alongside it.
//
// Each subpackage implements datasetapi.Module for one family of analysis
// methods. plugins/catalog composes them into the default dispatch order and
// is the only package allowed to import its siblings.
//
// A NOTE ON testhelper:
//
//	The subpackage plugins/testhelper provides a scriptable data source and
//	seeded reference tables for module tests. Do not import it from
//	production module code.
package plugins
