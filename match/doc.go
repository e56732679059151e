// Package match models the canonical per-protein match artifact consumed by the
// representative domain selection engine.
//
// A document maps sequence ids to signature accessions to match objects:
//
//	{
//	  "sp|P12345": {
//	    "PF00069": {
//	      "member_db": "Pfam",
//	      "locations": [
//	        {"start": 10, "end": 250, "representative": "",
//	         "location-fragments": [{"start": 10, "end": 250, "dc-status": "CONTINUOUS"}]}
//	      ]
//	    }
//	  }
//	}
//
// Decoding keeps every key the engine does not interpret, so a decoded Set
// re-encodes to the same shape with only the representative flags rewritten.
// Locations whose coordinates cannot be interpreted are kept as-is and report
// the problem through Location.Err instead of failing the document.
package match
