// Package hcl_adapter decodes programs written in HCL into the format-neutral
// document model.
//
// A file holds any number of variable blocks and exactly one program block:
//
//	variable "egg_time" {
//	  default = 150
//	}
//
//	program "breakfast-schedule" {
//	  name = "Breakfast Schedule"
//	  start_trigger "manual" {}
//
//	  resource "stove-burner" {
//	    max_concurrent = 2
//	  }
//
//	  track "scrambled-eggs" {
//	    step "eggs-cook" {
//	      task = "stove-burner"
//	      start_trigger "afterStep" {
//	        step = "eggs-crack-whisk"
//	      }
//	      duration "variable" {
//	        min_seconds     = 120
//	        max_seconds     = 180
//	        default_seconds = var.egg_time
//	        trigger_name    = "eggs-done"
//	      }
//	    }
//	  }
//	}
//
// Variables are referenced as var.<name>. Values supplied to NewLoader
// override the declared defaults.
package hcl_adapter
